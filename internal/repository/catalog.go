package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/substitution"
	"gorm.io/gorm"
)

// CatalogRepository reads ingredient and category reference data
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new CatalogRepository instance
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// IngredientsByIDs returns the requested ingredients keyed by id. Unknown ids
// are absent from the result.
func (r *CatalogRepository) IngredientsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Ingredient, error) {
	out := make(map[uuid.UUID]models.Ingredient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var ingredients []models.Ingredient
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	for _, ing := range ingredients {
		out[ing.ID] = ing
	}
	return out, nil
}

// IngredientsByCategory lists a category's ingredients ordered by name.
func (r *CatalogRepository) IngredientsByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).Order("name").Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", categoryID, err)
	}
	return ingredients, nil
}

// CategoryIndex loads every ingredient of the given categories in one query.
func (r *CatalogRepository) CategoryIndex(ctx context.Context, categoryIDs []uuid.UUID) (substitution.CategoryIndex, error) {
	idx := make(substitution.CategoryIndex, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return idx, nil
	}

	var ingredients []models.Ingredient
	if err := r.db.WithContext(ctx).Where("category_id IN ?", categoryIDs).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to load category index: %w", err)
	}
	for _, ing := range ingredients {
		idx[ing.CategoryID] = append(idx[ing.CategoryID], ing)
	}
	return idx, nil
}
