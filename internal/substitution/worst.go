package substitution

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/nutrition"
)

// Recipe is a fully resolved personalized recipe: its working lines with
// catalog data joined, and the refused substitutes per original ingredient.
type Recipe struct {
	Lines   []nutrition.Item
	Blocked map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewRecipe resolves a personalized recipe against the loaded ingredients.
// A line whose ingredient is missing yields apperrors.ErrNotFound.
func NewRecipe(pr *models.PersonalizedRecipe, ingredients map[uuid.UUID]models.Ingredient) (Recipe, error) {
	r := Recipe{Blocked: make(map[uuid.UUID]map[uuid.UUID]struct{})}
	for _, line := range pr.Ingredients {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			return Recipe{}, fmt.Errorf("ingredient %s: %w", line.IngredientID, apperrors.ErrNotFound)
		}
		r.Lines = append(r.Lines, nutrition.Item{Ingredient: ing, Amount: line.Amount})
	}
	for _, b := range pr.BlockedSubstitutions {
		if _, seen := r.Blocked[b.OriginalID]; !seen {
			r.Blocked[b.OriginalID] = pr.BlockedFor(b.OriginalID)
		}
	}
	return r, nil
}

// Selection is the ingredient picked for replacement with its candidates.
type Selection struct {
	Original   nutrition.Item
	Candidates []Candidate
}

// Selector picks the least healthy replaceable ingredient of a recipe.
type Selector struct {
	calc *nutrition.Calculator
	gen  *Generator
}

func NewSelector(calc *nutrition.Calculator, gen *Generator) *Selector {
	return &Selector{calc: calc, gen: gen}
}

// SelectWorst ranks lines by their intrinsic score (worst first, then larger
// mass, then id) and returns the first one that has at least one candidate.
// It reports false when nothing can be suggested.
//
// Scores are computed on the per-100 g basis, so a line's amount never
// changes its score; mass only breaks ties.
func (s *Selector) SelectWorst(r Recipe, constraints models.UserConstraints) (Selection, bool) {
	type ranked struct {
		item  nutrition.Item
		score int
		mass  float64
	}

	lines := make([]ranked, 0, len(r.Lines))
	for _, item := range r.Lines {
		lines = append(lines, ranked{
			item:  item,
			score: s.calc.IngredientScore(item.Ingredient),
			mass:  item.Ingredient.Grams(item.Amount),
		})
	}

	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.mass != b.mass {
			return a.mass > b.mass
		}
		return a.item.Ingredient.ID.String() < b.item.Ingredient.ID.String()
	})

	for _, l := range lines {
		candidates := s.gen.Generate(l.item.Ingredient, r.Lines, constraints, r.Blocked[l.item.Ingredient.ID])
		if len(candidates) > 0 {
			return Selection{Original: l.item, Candidates: candidates}, true
		}
	}
	return Selection{}, false
}
