package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/logging"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/types"
	"go.uber.org/zap"
)

// HistoryService reports and exports a user's applied substitutions
type HistoryService struct {
	recipes RecipeStore
	catalog CatalogStore
	storage ObjectStore
	expiry  time.Duration
	log     *zap.Logger
}

// NewHistoryService creates a new HistoryService instance. storage may be nil,
// in which case exports fail with ErrUnavailable.
func NewHistoryService(recipes RecipeStore, catalog CatalogStore, storage ObjectStore, expiry time.Duration, log *zap.Logger) *HistoryService {
	return &HistoryService{
		recipes: recipes,
		catalog: catalog,
		storage: storage,
		expiry:  expiry,
		log:     logging.OrNop(log),
	}
}

// ListHistory returns the substitutions applied to the user's copy of
// recipeName, oldest first.
func (s *HistoryService) ListHistory(ctx context.Context, userID uuid.UUID, recipeName string) ([]types.HistoryEntry, error) {
	_, pr, err := s.personalized(ctx, userID, recipeName)
	if err != nil {
		return nil, err
	}
	return s.entries(ctx, pr)
}

func (s *HistoryService) personalized(ctx context.Context, userID uuid.UUID, recipeName string) (*models.Recipe, *models.PersonalizedRecipe, error) {
	recipe, err := s.recipes.FindRecipeByName(ctx, recipeName)
	if err != nil {
		return nil, nil, err
	}
	pr, err := s.recipes.FindPersonalizedRecipe(ctx, userID, recipe.ID)
	if err != nil {
		return nil, nil, err
	}
	return recipe, pr, nil
}

func (s *HistoryService) entries(ctx context.Context, pr *models.PersonalizedRecipe) ([]types.HistoryEntry, error) {
	records, err := s.recipes.ListSubstitutionRecords(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	out := make([]types.HistoryEntry, 0, len(records))
	for _, r := range records {
		entry := types.HistoryEntry{ID: r.ID, Amount: r.Amount, CreatedAt: r.CreatedAt}
		if r.Original != nil {
			entry.Original = r.Original.Name
		}
		if r.Substitute != nil {
			entry.Substitute = r.Substitute.Name
			entry.Unit = r.Substitute.UnitType
		}
		out = append(out, entry)
	}
	return out, nil
}

type historyDocument struct {
	UserID      uuid.UUID                `json:"user_id"`
	Recipe      string                   `json:"recipe"`
	Version     int64                    `json:"version"`
	ExportedAt  time.Time                `json:"exported_at"`
	Ingredients []types.IngredientAmount `json:"ingredients"`
	History     []types.HistoryEntry     `json:"history"`
}

// ExportHistory uploads the user's current lines and substitution history
// for recipeName as JSON and returns a temporary download link.
func (s *HistoryService) ExportHistory(ctx context.Context, userID uuid.UUID, recipeName string) (*types.HistoryExport, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("history export: %w", apperrors.ErrUnavailable)
	}

	recipe, pr, err := s.personalized(ctx, userID, recipeName)
	if err != nil {
		return nil, err
	}
	history, err := s.entries(ctx, pr)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(pr.Ingredients))
	for _, line := range pr.Ingredients {
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := s.catalog.IngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := historyDocument{
		UserID:     userID,
		Recipe:     recipe.Name,
		Version:    pr.Version,
		ExportedAt: now,
		History:    history,
	}
	for _, line := range pr.Ingredients {
		ing := ingredients[line.IngredientID]
		doc.Ingredients = append(doc.Ingredients, types.IngredientAmount{
			IngredientID: line.IngredientID,
			Name:         ing.Name,
			Amount:       line.Amount,
			Unit:         ing.UnitType,
		})
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s/%s.json", userID, pr.ID, now.Format("20060102T150405Z"))
	if err := s.storage.Upload(ctx, key, body, "application/json"); err != nil {
		s.log.Error("failed to upload history export", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	url, err := s.storage.GeneratePresignedURL(ctx, key, s.expiry)
	if err != nil {
		return nil, err
	}

	s.log.Info("history exported", zap.String("user_id", userID.String()), zap.String("key", key))
	return &types.HistoryExport{Key: key, URL: url, ExpiresAt: now.Add(s.expiry)}, nil
}
