package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/substitution"
	"github.com/pageza/nutrichef/backend/internal/types"
)

// RecipeStore persists canonical and personalized recipes and the audit trail
type RecipeStore interface {
	FindRecipeByName(ctx context.Context, name string) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	FindOrCreatePersonalizedRecipe(ctx context.Context, userID uuid.UUID, recipe *models.Recipe) (*models.PersonalizedRecipe, error)
	FindPersonalizedRecipe(ctx context.Context, userID, recipeID uuid.UUID) (*models.PersonalizedRecipe, error)
	GetPersonalizedRecipe(ctx context.Context, id uuid.UUID) (*models.PersonalizedRecipe, error)
	SavePersonalizedRecipe(ctx context.Context, pr *models.PersonalizedRecipe) error
	AppendSubstitutionRecord(ctx context.Context, record *models.SubstitutionRecord) error
	AppendBlockedSubstitution(ctx context.Context, block *models.BlockedSubstitution) error
	ListSubstitutionRecords(ctx context.Context, personalizedRecipeID uuid.UUID) ([]models.SubstitutionRecord, error)
}

// CatalogStore reads ingredient reference data
type CatalogStore interface {
	IngredientsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Ingredient, error)
	CategoryIndex(ctx context.Context, categoryIDs []uuid.UUID) (substitution.CategoryIndex, error)
}

// ConstraintSource provides a user's allergies, dislikes, lifestyles and goal
type ConstraintSource interface {
	LoadUserConstraints(ctx context.Context, userID uuid.UUID) (models.UserConstraints, error)
}

// SessionStore keeps at most one cooking session per user
type SessionStore interface {
	Save(ctx context.Context, session *models.CookingSession) error
	Load(ctx context.Context, userID uuid.UUID) (*models.CookingSession, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	CompareAndSwap(ctx context.Context, session *models.CookingSession, expectedVersion int64) error
}

// Locker serializes work on a key
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// ObjectStore uploads documents and hands out temporary download links
type ObjectStore interface {
	Upload(ctx context.Context, objectKey string, body []byte, contentType string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, expiration time.Duration) (string, error)
}

// ICookingService defines the interface for the cooking conversation
type ICookingService interface {
	StartCooking(ctx context.Context, userID uuid.UUID, recipeName string) (*types.ProposalView, error)
	GetSubstitutes(ctx context.Context, userID uuid.UUID) (*types.ProposalView, error)
	ResolveBySelection(ctx context.Context, userID uuid.UUID, choice int) (*types.Resolution, error)
	ResolveByBlocking(ctx context.Context, userID uuid.UUID) (*types.BlockResult, error)
	RescoreAfterResolution(ctx context.Context, userID uuid.UUID) (*types.RescoreReport, error)
}

// IHistoryService defines the interface for substitution history operations
type IHistoryService interface {
	ListHistory(ctx context.Context, userID uuid.UUID, recipeName string) ([]types.HistoryEntry, error)
	ExportHistory(ctx context.Context, userID uuid.UUID, recipeName string) (*types.HistoryExport, error)
}

// ITokenService defines the interface for access token operations
type ITokenService interface {
	ValidateToken(token string) (*types.TokenClaims, error)
	GenerateToken(userID uuid.UUID) (string, error)
}

var (
	_ ICookingService = (*CookingService)(nil)
	_ IHistoryService = (*HistoryService)(nil)
	_ ITokenService   = (*TokenService)(nil)
)
