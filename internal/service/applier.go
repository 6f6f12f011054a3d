package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/logging"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/substitution"
	"go.uber.org/zap"
)

// SubstitutionApplier writes a chosen substitution into a personalized recipe.
type SubstitutionApplier struct {
	recipes RecipeStore
	log     *zap.Logger
}

// NewSubstitutionApplier creates a new SubstitutionApplier instance
func NewSubstitutionApplier(recipes RecipeStore, log *zap.Logger) *SubstitutionApplier {
	return &SubstitutionApplier{recipes: recipes, log: logging.OrNop(log)}
}

// Apply records the substitution in the audit trail, then replaces original
// with amount of substitute in pr and saves it. The record survives a failed
// save. On success pr holds the saved lines and version.
func (a *SubstitutionApplier) Apply(ctx context.Context, pr *models.PersonalizedRecipe, originalID, substituteID uuid.UUID, amount float64) (*models.SubstitutionRecord, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		a.log.Error("rejected substitution amount",
			zap.String("personalized_recipe_id", pr.ID.String()),
			zap.Float64("amount", amount))
		return nil, fmt.Errorf("substitute amount %v: %w", amount, apperrors.ErrInvalidQuantity)
	}
	if originalID == substituteID {
		return nil, fmt.Errorf("ingredient %s cannot replace itself: %w", originalID, apperrors.ErrInvalidSelection)
	}

	record := &models.SubstitutionRecord{
		PersonalizedRecipeID: pr.ID,
		OriginalID:           originalID,
		SubstituteID:         substituteID,
		Amount:               amount,
	}
	if err := a.recipes.AppendSubstitutionRecord(ctx, record); err != nil {
		return nil, err
	}

	lines, err := substitution.Merge(pr.Ingredients, originalID, substituteID, amount, record.ID)
	if err != nil {
		a.logPending(record, err)
		return record, err
	}

	next := *pr
	next.Ingredients = lines
	if err := a.recipes.SavePersonalizedRecipe(ctx, &next); err != nil {
		a.logPending(record, err)
		return record, err
	}
	*pr = next
	return record, nil
}

func (a *SubstitutionApplier) logPending(record *models.SubstitutionRecord, err error) {
	fields := []zap.Field{
		zap.String("record_id", record.ID.String()),
		zap.String("personalized_recipe_id", record.PersonalizedRecipeID.String()),
		zap.Error(err),
	}
	if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrNotFound) {
		a.log.Warn("substitution recorded but not applied", fields...)
		return
	}
	a.log.Error("substitution recorded but not applied", fields...)
}
