package substitution

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
)

// Merge replaces originalID with amount of substituteID in lines and returns
// the new list; lines is left untouched. A substitute already present has its
// amount increased instead of gaining a second row. recordID is the audit
// record the inserted or grown line will point at.
func Merge(lines []models.PersonalizedIngredient, originalID, substituteID uuid.UUID, amount float64, recordID uuid.UUID) ([]models.PersonalizedIngredient, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, fmt.Errorf("substitute amount %v: %w", amount, apperrors.ErrInvalidQuantity)
	}
	if originalID == substituteID {
		return nil, fmt.Errorf("ingredient %s cannot replace itself: %w", originalID, apperrors.ErrInvalidSelection)
	}

	origIdx, subIdx := -1, -1
	for i, l := range lines {
		switch l.IngredientID {
		case originalID:
			origIdx = i
		case substituteID:
			subIdx = i
		}
	}
	if origIdx < 0 {
		return nil, fmt.Errorf("ingredient %s not in recipe: %w", originalID, apperrors.ErrNotFound)
	}

	if subIdx < 0 && amount <= 0 {
		return nil, fmt.Errorf("substitute amount %v: %w", amount, apperrors.ErrInvalidQuantity)
	}

	ref := recordID
	out := make([]models.PersonalizedIngredient, 0, len(lines))
	for i, l := range lines {
		switch i {
		case origIdx:
			// a new substitute takes the original's position
			if subIdx < 0 {
				out = append(out, models.PersonalizedIngredient{
					PersonalizedRecipeID: l.PersonalizedRecipeID,
					IngredientID:         substituteID,
					Amount:               amount,
					SubstitutionForID:    &ref,
				})
			}
			continue
		case subIdx:
			l.Amount += amount
			if l.Amount <= 0 {
				return nil, fmt.Errorf("merged amount %v of %s: %w", l.Amount, substituteID, apperrors.ErrInvalidQuantity)
			}
			l.SubstitutionForID = &ref
		}
		out = append(out, l)
	}
	return out, nil
}
