package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository persists canonical recipes, personalized recipes and the
// substitution audit trail
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new RecipeRepository instance
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// FindRecipeByName looks a canonical recipe up by name, ignoring case.
func (r *RecipeRepository) FindRecipeByName(ctx context.Context, name string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).
		Preload("Ingredients", byPosition).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("recipe %q: %w", name, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe %q: %w", name, err)
	}
	return &recipe, nil
}

// GetRecipe loads a canonical recipe with its lines.
func (r *RecipeRepository) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).Preload("Ingredients", byPosition).First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("recipe %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %s: %w", id, err)
	}
	return &recipe, nil
}

// FindOrCreatePersonalizedRecipe returns the user's working copy of recipe,
// cloning the canonical lines on first use.
func (r *RecipeRepository) FindOrCreatePersonalizedRecipe(ctx context.Context, userID uuid.UUID, recipe *models.Recipe) (*models.PersonalizedRecipe, error) {
	pr, err := r.FindPersonalizedRecipe(ctx, userID, recipe.ID)
	if err == nil {
		return pr, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	pr = &models.PersonalizedRecipe{UserID: userID, RecipeID: recipe.ID, Version: 1}
	createErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(pr).Error; err != nil {
			return err
		}
		// a working copy holds one line per ingredient; repeats are summed
		// into the first occurrence
		at := make(map[uuid.UUID]int, len(recipe.Ingredients))
		for _, line := range recipe.Ingredients {
			if i, ok := at[line.IngredientID]; ok {
				pr.Ingredients[i].Amount += line.Amount
				continue
			}
			at[line.IngredientID] = len(pr.Ingredients)
			pr.Ingredients = append(pr.Ingredients, models.PersonalizedIngredient{
				PersonalizedRecipeID: pr.ID,
				IngredientID:         line.IngredientID,
				Amount:               line.Amount,
				Position:             len(pr.Ingredients),
			})
		}
		if len(pr.Ingredients) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).Create(&pr.Ingredients).Error
	})
	if createErr != nil {
		// another request may have created it first
		if existing, err := r.FindPersonalizedRecipe(ctx, userID, recipe.ID); err == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create personalized recipe: %w", createErr)
	}
	return pr, nil
}

// FindPersonalizedRecipe loads a user's working copy with lines and blocks.
func (r *RecipeRepository) FindPersonalizedRecipe(ctx context.Context, userID, recipeID uuid.UUID) (*models.PersonalizedRecipe, error) {
	return r.loadPersonalized(ctx, "user_id = ? AND recipe_id = ?", userID, recipeID)
}

// GetPersonalizedRecipe loads a working copy by id.
func (r *RecipeRepository) GetPersonalizedRecipe(ctx context.Context, id uuid.UUID) (*models.PersonalizedRecipe, error) {
	return r.loadPersonalized(ctx, "id = ?", id)
}

func (r *RecipeRepository) loadPersonalized(ctx context.Context, query string, args ...interface{}) (*models.PersonalizedRecipe, error) {
	var pr models.PersonalizedRecipe
	err := r.db.WithContext(ctx).
		Preload("Ingredients", byPosition).
		Preload("BlockedSubstitutions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where(query, args...).
		First(&pr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("personalized recipe: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load personalized recipe: %w", err)
	}
	return &pr, nil
}

// SavePersonalizedRecipe replaces the working lines of pr if its version is
// still current, and bumps the version. A stale pr yields ErrConflict.
func (r *RecipeRepository) SavePersonalizedRecipe(ctx context.Context, pr *models.PersonalizedRecipe) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PersonalizedRecipe{}).
			Where("id = ? AND version = ?", pr.ID, pr.Version).
			Updates(map[string]interface{}{"version": gorm.Expr("version + 1"), "updated_at": gorm.Expr("CURRENT_TIMESTAMP")})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("personalized recipe %s at version %d: %w", pr.ID, pr.Version, apperrors.ErrConflict)
		}

		if err := tx.Where("personalized_recipe_id = ?", pr.ID).Delete(&models.PersonalizedIngredient{}).Error; err != nil {
			return err
		}
		if len(pr.Ingredients) == 0 {
			return nil
		}
		for i := range pr.Ingredients {
			pr.Ingredients[i].PersonalizedRecipeID = pr.ID
			pr.Ingredients[i].Position = i
		}
		return tx.Omit(clause.Associations).Create(&pr.Ingredients).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to save personalized recipe: %w", err)
	}
	pr.Version++
	return nil
}

// AppendSubstitutionRecord writes an audit entry. Records are never updated.
func (r *RecipeRepository) AppendSubstitutionRecord(ctx context.Context, record *models.SubstitutionRecord) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error; err != nil {
		return fmt.Errorf("failed to append substitution record: %w", err)
	}
	return nil
}

// AppendBlockedSubstitution adds a refusal to a personalized recipe's block list.
func (r *RecipeRepository) AppendBlockedSubstitution(ctx context.Context, block *models.BlockedSubstitution) error {
	if err := r.db.WithContext(ctx).Create(block).Error; err != nil {
		return fmt.Errorf("failed to append blocked substitution: %w", err)
	}
	return nil
}

// ListSubstitutionRecords returns the audit trail of a personalized recipe,
// oldest first, with both ingredients joined.
func (r *RecipeRepository) ListSubstitutionRecords(ctx context.Context, personalizedRecipeID uuid.UUID) ([]models.SubstitutionRecord, error) {
	var records []models.SubstitutionRecord
	err := r.db.WithContext(ctx).
		Preload("Original").
		Preload("Substitute").
		Where("personalized_recipe_id = ?", personalizedRecipeID).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list substitution records: %w", err)
	}
	return records, nil
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}
