package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/nutrition"
	"github.com/pageza/nutrichef/backend/internal/repository"
	"github.com/pageza/nutrichef/backend/internal/service"
	"github.com/pageza/nutrichef/backend/internal/testhelpers"
)

type stack struct {
	catalog testhelpers.Catalog
	recipes *repository.RecipeRepository
	cooking *service.CookingService
	history *service.HistoryService
	newUser func(p testhelpers.Profile) uuid.UUID
}

// setupStack runs the services against PostgreSQL and Redis containers.
func setupStack(t *testing.T) *stack {
	t.Helper()
	db := testhelpers.SetupPostgresDB(t)
	rdb := testhelpers.SetupRedis(t)

	c := testhelpers.PancakesCatalog()
	testhelpers.SeedCatalog(t, db, c)

	calc, err := nutrition.NewCalculator(nutrition.DefaultTable())
	require.NoError(t, err)

	recipes := repository.NewRecipeRepository(db)
	catalog := repository.NewCatalogRepository(db)
	s := &stack{
		catalog: c,
		recipes: recipes,
		cooking: service.NewCookingService(recipes, catalog, repository.NewUserRepository(db),
			repository.NewRedisSessionStore(rdb, time.Hour), repository.NewRedisLocker(rdb, 5*time.Second),
			calc, zap.NewNop()),
		history: service.NewHistoryService(recipes, catalog, nil, time.Minute, zap.NewNop()),
	}
	s.newUser = func(p testhelpers.Profile) uuid.UUID {
		return testhelpers.SeedUser(t, db, uuid.NewString()+"@example.com", p).ID
	}
	return s
}

func TestPancakesFlow(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	userID := s.newUser(testhelpers.Profile{Preferences: []string{models.PreferenceDairyFree}})

	view, err := s.cooking.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	require.True(t, view.Available)
	assert.Equal(t, "whole milk", view.Original.Name)
	require.Len(t, view.Substitutes, 2)
	assert.Equal(t, "oat milk", view.Substitutes[0].Name)
	assert.Equal(t, "almond milk", view.Substitutes[1].Name)

	res, err := s.cooking.ResolveBySelection(ctx, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, "oat milk", res.Ingredient.Name)
	assert.Equal(t, 200.0, res.Ingredient.Amount)

	_, err = s.cooking.ResolveBySelection(ctx, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrSessionAlreadyResolved)

	report, err := s.cooking.RescoreAfterResolution(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, -1, report.Old.Score)
	assert.Equal(t, -2, report.New.Score)
	assert.Equal(t, "A", report.New.Grade)

	entries, err := s.history.ListHistory(ctx, userID, "Pancakes")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "whole milk", entries[0].Original)
	assert.Equal(t, "oat milk", entries[0].Substitute)

	pr, err := s.recipes.FindPersonalizedRecipe(ctx, userID, s.catalog.Pancakes.ID)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, l := range pr.Ingredients {
		ids = append(ids, l.IngredientID)
	}
	assert.Equal(t, []uuid.UUID{s.catalog.OatMilk.ID, s.catalog.WhiteFlour.ID}, ids)
}

func TestBlockingPersistsAcrossSessions(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	userID := s.newUser(testhelpers.Profile{Preferences: []string{models.PreferenceDairyFree}})

	_, err := s.cooking.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	blocked, err := s.cooking.ResolveByBlocking(ctx, userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{s.catalog.OatMilk.ID, s.catalog.AlmondMilk.ID}, blocked.Blocked)

	view, err := s.cooking.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	assert.False(t, view.Available)
	assert.Empty(t, view.Substitutes)
}

func TestConcurrentSelectionAppliesOnce(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	userID := s.newUser(testhelpers.Profile{})

	_, err := s.cooking.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)

	const workers = 4
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.cooking.ResolveBySelection(ctx, userID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, apperrors.ErrSessionAlreadyResolved):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, workers-1, rejected)

	entries, err := s.history.ListHistory(ctx, userID, "Pancakes")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
