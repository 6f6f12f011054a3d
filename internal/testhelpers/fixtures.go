package testhelpers

import (
	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/models"
)

// Catalog is the Pancakes fixture: one recipe, a milk category with dairy and
// plant alternatives, and a flour category with nothing to swap.
type Catalog struct {
	Milk  models.Category
	Flour models.Category

	WholeMilk  models.Ingredient
	SkimMilk   models.Ingredient
	OatMilk    models.Ingredient
	AlmondMilk models.Ingredient
	WhiteFlour models.Ingredient

	Pancakes models.Recipe
}

// Ingredients returns every fixture ingredient.
func (c Catalog) Ingredients() []models.Ingredient {
	return []models.Ingredient{c.WholeMilk, c.SkimMilk, c.OatMilk, c.AlmondMilk, c.WhiteFlour}
}

// CategoryIndex groups the fixture ingredients by category.
func (c Catalog) CategoryIndex() map[uuid.UUID][]models.Ingredient {
	idx := make(map[uuid.UUID][]models.Ingredient)
	for _, ing := range c.Ingredients() {
		idx[ing.CategoryID] = append(idx[ing.CategoryID], ing)
	}
	return idx
}

// PancakesCatalog builds a fresh fixture with stable ids. Amounts are grams.
func PancakesCatalog() Catalog {
	c := Catalog{
		Milk:  models.Category{ID: uuid.MustParse("10000000-0000-0000-0000-000000000001"), Name: "milk"},
		Flour: models.Category{ID: uuid.MustParse("10000000-0000-0000-0000-000000000002"), Name: "flour"},
	}

	c.WholeMilk = models.Ingredient{
		ID: uuid.MustParse("20000000-0000-0000-0000-000000000001"), Name: "whole milk",
		UnitType: "g", UnitGrams: 1, CategoryID: c.Milk.ID,
		Nutrients: models.Nutrients{EnergyKJ: 268, Sugars: 4.8, SaturatedFat: 2.3, SodiumMg: 44, Protein: 3.3},
		Allergens: models.StringSet{"milk"},
		Traits:    models.StringSet{"dairy", "animal"},
	}
	c.SkimMilk = models.Ingredient{
		ID: uuid.MustParse("20000000-0000-0000-0000-000000000002"), Name: "skim milk",
		UnitType: "g", UnitGrams: 1, CategoryID: c.Milk.ID,
		Nutrients: models.Nutrients{EnergyKJ: 146, Sugars: 5, SaturatedFat: 0.1, SodiumMg: 42, Protein: 3.4},
		Allergens: models.StringSet{"milk"},
		Traits:    models.StringSet{"dairy", "animal"},
	}
	c.OatMilk = models.Ingredient{
		ID: uuid.MustParse("20000000-0000-0000-0000-000000000003"), Name: "oat milk",
		UnitType: "g", UnitGrams: 1, CategoryID: c.Milk.ID,
		Nutrients: models.Nutrients{EnergyKJ: 190, Sugars: 4, SaturatedFat: 0.2, SodiumMg: 40, Fiber: 1.0, Protein: 1},
		Allergens: models.StringSet{},
		Traits:    models.StringSet{"gluten"},
	}
	c.AlmondMilk = models.Ingredient{
		ID: uuid.MustParse("20000000-0000-0000-0000-000000000004"), Name: "almond milk",
		UnitType: "g", UnitGrams: 1, CategoryID: c.Milk.ID,
		Nutrients: models.Nutrients{EnergyKJ: 55, Sugars: 0.1, SaturatedFat: 0.1, SodiumMg: 70, Fiber: 0.4, Protein: 0.5},
		Allergens: models.StringSet{"nuts"},
		Traits:    models.StringSet{"nuts"},
	}
	c.WhiteFlour = models.Ingredient{
		ID: uuid.MustParse("20000000-0000-0000-0000-000000000005"), Name: "white flour",
		UnitType: "g", UnitGrams: 1, CategoryID: c.Flour.ID,
		Nutrients: models.Nutrients{EnergyKJ: 1500, Sugars: 0.3, SaturatedFat: 0.2, SodiumMg: 2, Fiber: 2.7, Protein: 10},
		Allergens: models.StringSet{"gluten"},
		Traits:    models.StringSet{"gluten"},
	}

	c.Pancakes = models.Recipe{
		ID:   uuid.MustParse("30000000-0000-0000-0000-000000000001"),
		Name: "Pancakes",
		Ingredients: []models.RecipeIngredient{
			{ID: uuid.MustParse("40000000-0000-0000-0000-000000000001"), IngredientID: c.WholeMilk.ID, Amount: 200},
			{ID: uuid.MustParse("40000000-0000-0000-0000-000000000002"), IngredientID: c.WhiteFlour.ID, Amount: 150, Position: 1},
		},
	}
	for i := range c.Pancakes.Ingredients {
		c.Pancakes.Ingredients[i].RecipeID = c.Pancakes.ID
	}
	return c
}
