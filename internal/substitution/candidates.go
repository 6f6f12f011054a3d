// Package substitution decides which ingredient to replace and with what.
// Everything here is pure: callers load the catalog and user data first.
package substitution

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/nutrition"
)

// MaxCandidates matches the "pick 1, 2 or 3" voice dialogue.
const MaxCandidates = 3

// CategoryIndex maps a category id to every catalog ingredient in it.
type CategoryIndex map[uuid.UUID][]models.Ingredient

// Candidate is a ranked replacement for an original ingredient.
type Candidate struct {
	Ingredient models.Ingredient
	// Amount is expressed in the candidate's own unit.
	Amount float64
	// Improvement is original score minus candidate score; positive is better.
	Improvement int
	// Misaligned is set when the candidate works against the user's goal.
	Misaligned bool
}

// Generator produces substitute candidates from a category index.
type Generator struct {
	calc  *nutrition.Calculator
	index CategoryIndex
	limit int
}

func NewGenerator(calc *nutrition.Calculator, index CategoryIndex) *Generator {
	return &Generator{calc: calc, index: index, limit: MaxCandidates}
}

// Generate returns at most MaxCandidates replacements for original, best
// first. lines is the recipe's working list and supplies the amount to
// convert. blocked holds substitutes refused for this original. An empty
// result means no substitution is possible.
func (g *Generator) Generate(original models.Ingredient, lines []nutrition.Item, constraints models.UserConstraints, blocked map[uuid.UUID]struct{}) []Candidate {
	amount := amountOf(original.ID, lines)
	originalScore := g.calc.IngredientScore(original)

	var out []Candidate
	for _, ing := range g.index[original.CategoryID] {
		if ing.ID == original.ID {
			continue
		}
		if _, refused := blocked[ing.ID]; refused {
			continue
		}
		if !constraints.Allows(ing) {
			continue
		}
		out = append(out, Candidate{
			Ingredient:  ing,
			Amount:      convert(amount, original, ing),
			Improvement: originalScore - g.calc.IngredientScore(ing),
			Misaligned:  constraints.Goal.Worse(ing.Nutrients, original.Nutrients),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Misaligned != b.Misaligned {
			return !a.Misaligned
		}
		if a.Improvement != b.Improvement {
			return a.Improvement > b.Improvement
		}
		return a.Ingredient.ID.String() < b.Ingredient.ID.String()
	})

	if len(out) > g.limit {
		out = out[:g.limit]
	}
	return out
}

func amountOf(id uuid.UUID, lines []nutrition.Item) float64 {
	for _, l := range lines {
		if l.Ingredient.ID == id {
			return l.Amount
		}
	}
	return 0
}

// convert keeps the mass constant across units.
func convert(amount float64, from, to models.Ingredient) float64 {
	if to.UnitGrams <= 0 || from.UnitGrams == to.UnitGrams {
		return amount
	}
	return amount * from.UnitGrams / to.UnitGrams
}
