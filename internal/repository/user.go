package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository reads the restriction data owned by the account service
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// LoadUserConstraints assembles allergies, dislikes, lifestyles and goal.
func (r *UserRepository) LoadUserConstraints(ctx context.Context, userID uuid.UUID) (models.UserConstraints, error) {
	db := r.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UserConstraints{}, fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
		}
		return models.UserConstraints{}, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	var allergens []models.Allergen
	if err := db.Where("user_id = ?", userID).Find(&allergens).Error; err != nil {
		return models.UserConstraints{}, fmt.Errorf("failed to load allergens: %w", err)
	}

	var prefs []models.DietaryPreference
	if err := db.Where("user_id = ?", userID).Find(&prefs).Error; err != nil {
		return models.UserConstraints{}, fmt.Errorf("failed to load dietary preferences: %w", err)
	}

	var dislikes []models.Dislike
	if err := db.Where("user_id = ?", userID).Find(&dislikes).Error; err != nil {
		return models.UserConstraints{}, fmt.Errorf("failed to load dislikes: %w", err)
	}

	var goal models.NutritionGoal
	err := db.Where("user_id = ?", userID).Limit(1).Find(&goal).Error
	if err != nil {
		return models.UserConstraints{}, fmt.Errorf("failed to load nutrition goal: %w", err)
	}
	if !goal.Goal.Valid() {
		goal.Goal = models.GoalNone
	}

	return models.NewUserConstraints(userID, allergens, prefs, dislikes, goal.Goal), nil
}

// FindOrCreateUser returns the user with email, creating it when missing.
func (r *UserRepository) FindOrCreateUser(ctx context.Context, name, email string) (*models.User, error) {
	user := models.User{Name: name, Email: email}
	if err := r.db.WithContext(ctx).Where(models.User{Email: email}).FirstOrCreate(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to find or create user %s: %w", email, err)
	}
	return &user, nil
}
