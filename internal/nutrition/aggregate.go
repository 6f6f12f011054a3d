package nutrition

import (
	"fmt"
	"math"

	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
)

// Item is one (ingredient, amount) pair. Amount is in the ingredient's unit.
type Item struct {
	Ingredient models.Ingredient
	Amount     float64
}

// Vector holds absolute nutrient totals for Weight grams of food.
type Vector struct {
	models.Nutrients
	Weight float64 `json:"weight"`
}

// PerGrams rescales the vector to the given mass. FruitVegNut stays a percentage.
func (v Vector) PerGrams(grams float64) models.Nutrients {
	if v.Weight <= 0 {
		return models.Nutrients{}
	}
	n := v.Nutrients.Scale(grams / v.Weight)
	n.FruitVegNut = v.Nutrients.FruitVegNut * 100 / v.Weight
	return n
}

// Aggregate sums the quantity-weighted nutrient contributions of items.
func Aggregate(items []Item) (Vector, error) {
	var v Vector
	for _, it := range items {
		mass, err := massOf(it)
		if err != nil {
			return Vector{}, err
		}
		v.Nutrients = v.Nutrients.Add(it.Ingredient.Nutrients.Scale(mass / 100))
		v.Weight += mass
	}
	return v, nil
}

// TotalWeight returns the summed mass of items in grams.
func TotalWeight(items []Item) (float64, error) {
	var total float64
	for _, it := range items {
		mass, err := massOf(it)
		if err != nil {
			return 0, err
		}
		total += mass
	}
	return total, nil
}

// Of returns the contribution of a single ingredient line.
func Of(ing models.Ingredient, amount float64) (Vector, error) {
	return Aggregate([]Item{{Ingredient: ing, Amount: amount}})
}

func massOf(it Item) (float64, error) {
	if math.IsNaN(it.Amount) || math.IsInf(it.Amount, 0) || it.Amount < 0 {
		return 0, fmt.Errorf("amount %v of %q: %w", it.Amount, it.Ingredient.Name, apperrors.ErrInvalidQuantity)
	}
	if math.IsNaN(it.Ingredient.UnitGrams) || it.Ingredient.UnitGrams < 0 {
		return 0, fmt.Errorf("unit weight %v of %q: %w", it.Ingredient.UnitGrams, it.Ingredient.Name, apperrors.ErrInvalidQuantity)
	}
	return it.Ingredient.Grams(it.Amount), nil
}
