package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/nutrition"
	"github.com/pageza/nutrichef/backend/internal/repository"
	"github.com/pageza/nutrichef/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	db       *gorm.DB
	catalog  testhelpers.Catalog
	recipes  *repository.RecipeRepository
	sessions *repository.GormSessionStore
	svc      *CookingService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testhelpers.SetupSQLiteDB(t)
	c := testhelpers.PancakesCatalog()
	testhelpers.SeedCatalog(t, db, c)

	calc, err := nutrition.NewCalculator(nutrition.DefaultTable())
	require.NoError(t, err)

	h := &harness{
		db:       db,
		catalog:  c,
		recipes:  repository.NewRecipeRepository(db),
		sessions: repository.NewGormSessionStore(db),
	}
	h.svc = NewCookingService(h.recipes, repository.NewCatalogRepository(db), repository.NewUserRepository(db),
		h.sessions, repository.NewKeyedMutex(), calc, zap.NewNop())
	return h
}

func (h *harness) user(t *testing.T, p testhelpers.Profile) uuid.UUID {
	return testhelpers.SeedUser(t, h.db, uuid.NewString()+"@example.com", p).ID
}

func (h *harness) lines(t *testing.T, userID uuid.UUID) map[uuid.UUID]float64 {
	t.Helper()
	pr, err := h.recipes.FindPersonalizedRecipe(context.Background(), userID, h.catalog.Pancakes.ID)
	require.NoError(t, err)
	out := make(map[uuid.UUID]float64, len(pr.Ingredients))
	for _, l := range pr.Ingredients {
		out[l.IngredientID] = l.Amount
	}
	return out
}

func dairyFree() testhelpers.Profile {
	return testhelpers.Profile{Preferences: []string{models.PreferenceDairyFree}}
}

func substituteNames(t *testing.T, h *harness, userID uuid.UUID) []string {
	t.Helper()
	view, err := h.svc.GetSubstitutes(context.Background(), userID)
	require.NoError(t, err)
	var names []string
	for _, s := range view.Substitutes {
		names = append(names, s.Name)
	}
	return names
}

func TestStartCookingDairyFree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	view, err := h.svc.StartCooking(ctx, userID, "pancakes")
	require.NoError(t, err)

	assert.True(t, view.Available)
	assert.Equal(t, "Pancakes", view.RecipeName)
	assert.Equal(t, string(models.SessionProposed), view.Status)
	require.NotNil(t, view.Original)
	assert.Equal(t, "whole milk", view.Original.Name)
	assert.Equal(t, 200.0, view.Original.Amount)
	require.Len(t, view.Substitutes, 2)
	assert.Equal(t, "oat milk", view.Substitutes[0].Name)
	assert.Equal(t, 1, view.Substitutes[0].Number)
	assert.Equal(t, 2, view.Substitutes[0].Improvement)
	assert.Equal(t, "almond milk", view.Substitutes[1].Name)
	assert.Equal(t, 200.0, view.Substitutes[1].Amount)

	pending, err := h.svc.GetSubstitutes(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, view, pending)
}

func TestStartCookingUnconstrained(t *testing.T) {
	h := newHarness(t)
	userID := h.user(t, testhelpers.Profile{})

	_, err := h.svc.StartCooking(context.Background(), userID, "Pancakes")
	require.NoError(t, err)
	assert.Equal(t, []string{"skim milk", "oat milk", "almond milk"}, substituteNames(t, h, userID))
}

func TestStartCookingErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, testhelpers.Profile{})

	_, err := h.svc.StartCooking(ctx, userID, "waffles")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.svc.StartCooking(ctx, uuid.New(), "Pancakes")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.svc.GetSubstitutes(ctx, userID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveBySelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	_, err := h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)

	res, err := h.svc.ResolveBySelection(ctx, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, "oat milk", res.Ingredient.Name)
	assert.Equal(t, 200.0, res.Ingredient.Amount)
	assert.Equal(t, "whole milk", res.Original.Name)
	assert.Equal(t, "g", res.Original.Unit)

	c := h.catalog
	assert.Equal(t, map[uuid.UUID]float64{c.OatMilk.ID: 200, c.WhiteFlour.ID: 150}, h.lines(t, userID))

	pr, err := h.recipes.FindPersonalizedRecipe(ctx, userID, c.Pancakes.ID)
	require.NoError(t, err)
	assert.Equal(t, c.OatMilk.ID, pr.Ingredients[0].IngredientID)
	require.NotNil(t, pr.Ingredients[0].SubstitutionForID)
	assert.Equal(t, res.RecordID, *pr.Ingredients[0].SubstitutionForID)

	records, err := h.recipes.ListSubstitutionRecords(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, c.WholeMilk.ID, records[0].OriginalID)
	assert.Equal(t, c.OatMilk.ID, records[0].SubstituteID)
	assert.Equal(t, 200.0, records[0].Amount)

	session, err := h.sessions.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionApplied, session.Status)
	assert.NotNil(t, session.ResolvedAt)
}

func TestResolveTwiceFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	_, err := h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	_, err = h.svc.ResolveBySelection(ctx, userID, 1)
	require.NoError(t, err)

	_, err = h.svc.ResolveBySelection(ctx, userID, 2)
	assert.ErrorIs(t, err, apperrors.ErrSessionAlreadyResolved)
	_, err = h.svc.ResolveByBlocking(ctx, userID)
	assert.ErrorIs(t, err, apperrors.ErrSessionAlreadyResolved)

	// nothing was applied twice
	c := h.catalog
	assert.Equal(t, map[uuid.UUID]float64{c.OatMilk.ID: 200, c.WhiteFlour.ID: 150}, h.lines(t, userID))
}

func TestResolveBySelectionInvalid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	_, err := h.svc.ResolveBySelection(ctx, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSelection)

	_, err = h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)

	for _, choice := range []int{0, 3, -1} {
		_, err = h.svc.ResolveBySelection(ctx, userID, choice)
		assert.ErrorIs(t, err, apperrors.ErrInvalidSelection, "choice %d", choice)
	}

	// a rejected choice leaves the proposal open
	_, err = h.svc.ResolveBySelection(ctx, userID, 2)
	require.NoError(t, err)
	assert.Contains(t, h.lines(t, userID), h.catalog.AlmondMilk.ID)
}

func TestResolveByBlocking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())
	c := h.catalog

	_, err := h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	before := h.lines(t, userID)

	res, err := h.svc.ResolveByBlocking(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "whole milk", res.Original.Name)
	assert.ElementsMatch(t, []uuid.UUID{c.OatMilk.ID, c.AlmondMilk.ID}, res.Blocked)
	assert.Contains(t, res.Msg, "whole milk")

	assert.Equal(t, before, h.lines(t, userID))
	pr, err := h.recipes.FindPersonalizedRecipe(ctx, userID, c.Pancakes.ID)
	require.NoError(t, err)
	assert.Len(t, pr.BlockedSubstitutions, 1)

	// the refused pairs are never offered again, and nothing else is left
	view, err := h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	assert.False(t, view.Available)
	assert.Empty(t, view.Substitutes)

	_, err = h.svc.ResolveByBlocking(ctx, userID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSelection)
	_, err = h.svc.ResolveBySelection(ctx, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSelection)
}

func TestBlocklistOnlyCoversRefusedCandidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, testhelpers.Profile{Preferences: []string{models.PreferenceDairyFree}, Allergens: []string{"nuts"}})

	_, err := h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	assert.Equal(t, []string{"oat milk"}, substituteNames(t, h, userID))
	_, err = h.svc.ResolveByBlocking(ctx, userID)
	require.NoError(t, err)

	// lifting the allergy brings almond back but oat stays refused
	require.NoError(t, h.db.Where("user_id = ?", userID).Delete(&models.Allergen{}).Error)
	_, err = h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	assert.Equal(t, []string{"almond milk"}, substituteNames(t, h, userID))
}

func TestStartCookingReplacesPendingSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	first, err := h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	second, err := h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	// a stale copy of the first session can no longer be resolved
	stale, err := h.sessions.Load(ctx, userID)
	require.NoError(t, err)
	stale.ID = first.SessionID
	stale.Status = models.SessionApplied
	assert.ErrorIs(t, h.sessions.CompareAndSwap(ctx, stale, stale.Version), apperrors.ErrConflict)

	_, err = h.svc.ResolveBySelection(ctx, userID, 1)
	require.NoError(t, err)
}

func TestRescoreAfterResolution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	_, err := h.svc.RescoreAfterResolution(ctx, userID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)

	report, err := h.svc.RescoreAfterResolution(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, report.Old, report.New)

	_, err = h.svc.ResolveBySelection(ctx, userID, 1)
	require.NoError(t, err)

	report, err = h.svc.RescoreAfterResolution(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", report.RecipeName)
	assert.Equal(t, -1, report.Old.Score)
	assert.Equal(t, "A", report.Old.Grade)
	assert.InDelta(t, 350, report.Old.Weight, 1e-9)
	assert.Equal(t, -2, report.New.Score)
	assert.Equal(t, "A", report.New.Grade)
	assert.InDelta(t, 350, report.New.Weight, 1e-9)

	// whole milk 200 + white flour 150, then oat milk 200 + white flour 150
	assert.InDelta(t, 2786, report.Old.Values.EnergyKJ, 1e-6)
	assert.InDelta(t, 10.05, report.Old.Values.Sugars, 1e-6)
	assert.InDelta(t, 2630, report.New.Values.EnergyKJ, 1e-6)
	assert.InDelta(t, 8.45, report.New.Values.Sugars, 1e-6)
	assert.InDelta(t, 2, report.New.Values.Fiber-report.Old.Values.Fiber, 1e-6)
}

type failingSave struct {
	*repository.RecipeRepository
}

func (f failingSave) SavePersonalizedRecipe(ctx context.Context, pr *models.PersonalizedRecipe) error {
	return apperrors.ErrConflict
}

func TestFailedApplyReopensSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	calc, err := nutrition.NewCalculator(nutrition.DefaultTable())
	require.NoError(t, err)
	svc := NewCookingService(failingSave{h.recipes}, repository.NewCatalogRepository(h.db), repository.NewUserRepository(h.db),
		h.sessions, repository.NewKeyedMutex(), calc, nil)

	_, err = svc.StartCooking(ctx, userID, "Pancakes")
	require.NoError(t, err)

	_, err = svc.ResolveBySelection(ctx, userID, 1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	session, err := h.sessions.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionProposed, session.Status)
	assert.Nil(t, session.ResolvedAt)

	// the audit record is kept even though the lines did not change
	pr, err := h.recipes.FindPersonalizedRecipe(ctx, userID, h.catalog.Pancakes.ID)
	require.NoError(t, err)
	records, err := h.recipes.ListSubstitutionRecords(ctx, pr.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Contains(t, h.lines(t, userID), h.catalog.WholeMilk.ID)

	_, err = h.svc.ResolveBySelection(ctx, userID, 1)
	require.NoError(t, err)
}

type missingIngredient struct {
	*repository.CatalogRepository
	drop uuid.UUID
}

func (m missingIngredient) IngredientsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Ingredient, error) {
	out, err := m.CatalogRepository.IngredientsByIDs(ctx, ids)
	delete(out, m.drop)
	return out, err
}

func TestStartCookingMissingIngredient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, dairyFree())

	calc, err := nutrition.NewCalculator(nutrition.DefaultTable())
	require.NoError(t, err)
	catalog := missingIngredient{repository.NewCatalogRepository(h.db), h.catalog.WhiteFlour.ID}
	svc := NewCookingService(h.recipes, catalog, repository.NewUserRepository(h.db),
		h.sessions, repository.NewKeyedMutex(), calc, nil)

	_, err = svc.StartCooking(ctx, userID, "Pancakes")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.sessions.Load(ctx, userID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
