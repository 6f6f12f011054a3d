package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/models"
	"gorm.io/gorm"
)

// CatalogFile is the on-disk seed format. Ingredients name their category and
// recipe lines name their ingredient.
type CatalogFile struct {
	Categories  []string         `json:"categories"`
	Ingredients []SeedIngredient `json:"ingredients"`
	Recipes     []SeedRecipe     `json:"recipes"`
}

type SeedIngredient struct {
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	UnitType  string           `json:"unit_type"`
	UnitGrams float64          `json:"unit_grams"`
	Nutrients models.Nutrients `json:"nutrients"`
	Allergens []string         `json:"allergens"`
	Traits    []string         `json:"traits"`
}

type SeedRecipe struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Ingredients []SeedLine `json:"ingredients"`
}

type SeedLine struct {
	Ingredient string  `json:"ingredient"`
	Amount     float64 `json:"amount"`
}

// ImportStats counts what an import created or refreshed.
type ImportStats struct {
	Categories  int
	Ingredients int
	Recipes     int
	Skipped     int
}

// ReadCatalogFile decodes a seed file.
func ReadCatalogFile(r io.Reader) (*CatalogFile, error) {
	var f CatalogFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}
	return &f, nil
}

// ImportCatalog upserts categories and ingredients by name and creates missing
// recipes. Existing recipes are left alone since personalized copies point at
// their lines.
func ImportCatalog(ctx context.Context, db *gorm.DB, f *CatalogFile) (ImportStats, error) {
	var stats ImportStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := make(map[string]models.Category, len(f.Categories))
		for _, name := range f.Categories {
			cat := models.Category{Name: name}
			if err := tx.Where(models.Category{Name: name}).FirstOrCreate(&cat).Error; err != nil {
				return fmt.Errorf("failed to seed category %q: %w", name, err)
			}
			categories[name] = cat
			stats.Categories++
		}

		ingredients := make(map[string]models.Ingredient, len(f.Ingredients))
		for _, si := range f.Ingredients {
			cat, ok := categories[si.Category]
			if !ok {
				return fmt.Errorf("ingredient %q names unknown category %q", si.Name, si.Category)
			}
			unitType, unitGrams := si.UnitType, si.UnitGrams
			if unitType == "" {
				unitType = "g"
			}
			if unitGrams <= 0 {
				unitGrams = 1
			}

			ing := models.Ingredient{Name: si.Name}
			err := tx.Where(models.Ingredient{Name: si.Name}).
				Assign(models.Ingredient{
					UnitType:   unitType,
					UnitGrams:  unitGrams,
					CategoryID: cat.ID,
					Nutrients:  si.Nutrients,
					Allergens:  models.StringSet(nonNil(si.Allergens)),
					Traits:     models.StringSet(nonNil(si.Traits)),
				}).
				FirstOrCreate(&ing).Error
			if err != nil {
				return fmt.Errorf("failed to seed ingredient %q: %w", si.Name, err)
			}
			ingredients[si.Name] = ing
			stats.Ingredients++
		}

		for _, sr := range f.Recipes {
			var count int64
			if err := tx.Model(&models.Recipe{}).Where("LOWER(name) = LOWER(?)", sr.Name).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check recipe %q: %w", sr.Name, err)
			}
			if count > 0 {
				stats.Skipped++
				continue
			}

			recipe := models.Recipe{Name: sr.Name, Description: sr.Description}
			at := make(map[uuid.UUID]int, len(sr.Ingredients))
			for _, line := range sr.Ingredients {
				ing, ok := ingredients[line.Ingredient]
				if !ok {
					if err := tx.Where("name = ?", line.Ingredient).First(&ing).Error; err != nil {
						return fmt.Errorf("recipe %q uses unknown ingredient %q: %w", sr.Name, line.Ingredient, err)
					}
				}
				if line.Amount <= 0 {
					return fmt.Errorf("recipe %q: %s amount must be positive", sr.Name, line.Ingredient)
				}
				if i, ok := at[ing.ID]; ok {
					recipe.Ingredients[i].Amount += line.Amount
					continue
				}
				at[ing.ID] = len(recipe.Ingredients)
				recipe.Ingredients = append(recipe.Ingredients, models.RecipeIngredient{
					IngredientID: ing.ID,
					Amount:       line.Amount,
					Position:     len(recipe.Ingredients),
				})
			}
			if err := tx.Create(&recipe).Error; err != nil {
				return fmt.Errorf("failed to seed recipe %q: %w", sr.Name, err)
			}
			stats.Recipes++
		}
		return nil
	})
	return stats, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
