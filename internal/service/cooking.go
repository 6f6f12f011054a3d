package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/logging"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/nutrition"
	"github.com/pageza/nutrichef/backend/internal/substitution"
	"github.com/pageza/nutrichef/backend/internal/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// CookingService runs the propose / resolve conversation for a user. Every
// call re-reads state from storage; writes for one user are serialized with
// the locker and guarded by version checks.
type CookingService struct {
	recipes  RecipeStore
	catalog  CatalogStore
	users    ConstraintSource
	sessions SessionStore
	locker   Locker
	applier  *SubstitutionApplier
	calc     *nutrition.Calculator
	log      *zap.Logger
}

// NewCookingService creates a new CookingService instance
func NewCookingService(recipes RecipeStore, catalog CatalogStore, users ConstraintSource, sessions SessionStore, locker Locker, calc *nutrition.Calculator, log *zap.Logger) *CookingService {
	log = logging.OrNop(log)
	return &CookingService{
		recipes:  recipes,
		catalog:  catalog,
		users:    users,
		sessions: sessions,
		locker:   locker,
		applier:  NewSubstitutionApplier(recipes, log),
		calc:     calc,
		log:      log,
	}
}

func lockKey(userID uuid.UUID) string {
	return "cooking:" + userID.String()
}

// StartCooking opens a new session for recipeName, replacing any previous
// one, and proposes substitutes for the least healthy replaceable ingredient.
func (s *CookingService) StartCooking(ctx context.Context, userID uuid.UUID, recipeName string) (*types.ProposalView, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	recipe, err := s.recipes.FindRecipeByName(ctx, recipeName)
	if err != nil {
		return nil, err
	}
	constraints, err := s.users.LoadUserConstraints(ctx, userID)
	if err != nil {
		return nil, err
	}
	pr, err := s.recipes.FindOrCreatePersonalizedRecipe(ctx, userID, recipe)
	if err != nil {
		return nil, err
	}

	proposal, err := s.propose(ctx, pr, constraints)
	if err != nil {
		return nil, err
	}

	session := &models.CookingSession{
		UserID:               userID,
		PersonalizedRecipeID: pr.ID,
		RecipeName:           recipe.Name,
		Status:               models.SessionProposed,
		Proposal:             datatypes.NewJSONType(proposal),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.log.Error("failed to save cooking session", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}

	s.log.Info("cooking session started",
		zap.String("user_id", userID.String()),
		zap.String("recipe", recipe.Name),
		zap.String("original", proposal.OriginalName),
		zap.Int("candidates", len(proposal.Candidates)))
	return proposalView(session), nil
}

// propose resolves pr against the catalog and picks what to offer.
func (s *CookingService) propose(ctx context.Context, pr *models.PersonalizedRecipe, constraints models.UserConstraints) (models.Proposal, error) {
	ids := make([]uuid.UUID, 0, len(pr.Ingredients))
	for _, line := range pr.Ingredients {
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := s.catalog.IngredientsByIDs(ctx, ids)
	if err != nil {
		return models.Proposal{}, err
	}

	seen := make(map[uuid.UUID]struct{})
	var categories []uuid.UUID
	for _, ing := range ingredients {
		if _, ok := seen[ing.CategoryID]; ok {
			continue
		}
		seen[ing.CategoryID] = struct{}{}
		categories = append(categories, ing.CategoryID)
	}
	index, err := s.catalog.CategoryIndex(ctx, categories)
	if err != nil {
		return models.Proposal{}, err
	}

	recipe, err := substitution.NewRecipe(pr, ingredients)
	if err != nil {
		return models.Proposal{}, err
	}
	selector := substitution.NewSelector(s.calc, substitution.NewGenerator(s.calc, index))
	selection, ok := selector.SelectWorst(recipe, constraints)
	if !ok {
		return models.Proposal{}, nil
	}

	original := selection.Original
	proposal := models.Proposal{
		OriginalID:     original.Ingredient.ID,
		OriginalName:   original.Ingredient.Name,
		OriginalAmount: original.Amount,
		OriginalUnit:   original.Ingredient.UnitType,
		Candidates:     make([]models.ProposalCandidate, 0, len(selection.Candidates)),
	}
	for _, c := range selection.Candidates {
		proposal.Candidates = append(proposal.Candidates, models.ProposalCandidate{
			IngredientID: c.Ingredient.ID,
			Name:         c.Ingredient.Name,
			Amount:       c.Amount,
			UnitType:     c.Ingredient.UnitType,
			Improvement:  c.Improvement,
		})
	}
	return proposal, nil
}

// GetSubstitutes returns the user's current proposal.
func (s *CookingService) GetSubstitutes(ctx context.Context, userID uuid.UUID) (*types.ProposalView, error) {
	session, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return proposalView(session), nil
}

// ResolveBySelection applies candidate number choice (1-based) of the pending
// proposal and closes the session.
func (s *CookingService) ResolveBySelection(ctx context.Context, userID uuid.UUID, choice int) (*types.Resolution, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.pendingSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	proposal := session.Proposal.Data()
	if choice < 1 || choice > len(proposal.Candidates) {
		return nil, fmt.Errorf("choice %d of %d: %w", choice, len(proposal.Candidates), apperrors.ErrInvalidSelection)
	}
	candidate := proposal.Candidates[choice-1]

	pr, err := s.recipes.GetPersonalizedRecipe(ctx, session.PersonalizedRecipeID)
	if err != nil {
		return nil, err
	}

	// claim the proposal first so it can only be applied once
	if err := s.transition(ctx, session, models.SessionApplied); err != nil {
		return nil, err
	}

	record, err := s.applier.Apply(ctx, pr, proposal.OriginalID, candidate.IngredientID, candidate.Amount)
	if err != nil {
		s.reopen(ctx, session)
		return nil, err
	}

	s.log.Info("substitution applied",
		zap.String("user_id", userID.String()),
		zap.String("original", proposal.OriginalName),
		zap.String("substitute", candidate.Name),
		zap.Float64("amount", candidate.Amount))

	return &types.Resolution{
		Ingredient: types.IngredientAmount{
			IngredientID: candidate.IngredientID,
			Name:         candidate.Name,
			Amount:       candidate.Amount,
			Unit:         candidate.UnitType,
		},
		Original: originalAmount(proposal),
		RecordID: record.ID,
	}, nil
}

// ResolveByBlocking refuses every candidate of the pending proposal for good
// and closes the session. The recipe lines are left alone.
func (s *CookingService) ResolveByBlocking(ctx context.Context, userID uuid.UUID) (*types.BlockResult, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.pendingSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	proposal := session.Proposal.Data()

	if err := s.transition(ctx, session, models.SessionBlocked); err != nil {
		return nil, err
	}

	block := &models.BlockedSubstitution{
		PersonalizedRecipeID: session.PersonalizedRecipeID,
		OriginalID:           proposal.OriginalID,
		SubstituteIDs:        models.IDSet(proposal.CandidateIDs()),
	}
	if err := s.recipes.AppendBlockedSubstitution(ctx, block); err != nil {
		s.reopen(ctx, session)
		return nil, err
	}

	s.log.Info("substitution blocked",
		zap.String("user_id", userID.String()),
		zap.String("original", proposal.OriginalName),
		zap.Int("blocked", len(block.SubstituteIDs)))

	return &types.BlockResult{
		Msg:      fmt.Sprintf("Got it. I won't suggest those substitutes for %s again.", proposal.OriginalName),
		Original: originalAmount(proposal),
		Blocked:  block.SubstituteIDs,
	}, nil
}

// RescoreAfterResolution scores the canonical recipe and the user's
// personalized copy side by side.
func (s *CookingService) RescoreAfterResolution(ctx context.Context, userID uuid.UUID) (*types.RescoreReport, error) {
	session, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	pr, err := s.recipes.GetPersonalizedRecipe(ctx, session.PersonalizedRecipeID)
	if err != nil {
		return nil, err
	}
	recipe, err := s.recipes.GetRecipe(ctx, pr.RecipeID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, line := range recipe.Ingredients {
		ids = append(ids, line.IngredientID)
	}
	for _, line := range pr.Ingredients {
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := s.catalog.IngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var before, after []nutrition.Item
	for _, line := range recipe.Ingredients {
		item, err := itemFor(ingredients, line.IngredientID, line.Amount)
		if err != nil {
			return nil, err
		}
		before = append(before, item)
	}
	for _, line := range pr.Ingredients {
		item, err := itemFor(ingredients, line.IngredientID, line.Amount)
		if err != nil {
			return nil, err
		}
		after = append(after, item)
	}

	old, err := s.evaluate(before)
	if err != nil {
		return nil, err
	}
	updated, err := s.evaluate(after)
	if err != nil {
		return nil, err
	}
	return &types.RescoreReport{RecipeName: recipe.Name, Old: old, New: updated}, nil
}

func (s *CookingService) evaluate(items []nutrition.Item) (types.ScoreSnapshot, error) {
	v, err := nutrition.Aggregate(items)
	if err != nil {
		s.log.Error("failed to aggregate recipe nutrition", zap.Error(err))
		return types.ScoreSnapshot{}, err
	}
	r := s.calc.Evaluate(v, nutrition.SubjectRecipe)
	return types.ScoreSnapshot{Score: r.Score, Grade: string(r.Grade), Weight: r.Weight, Values: v.Nutrients}, nil
}

func itemFor(ingredients map[uuid.UUID]models.Ingredient, id uuid.UUID, amount float64) (nutrition.Item, error) {
	ing, ok := ingredients[id]
	if !ok {
		return nutrition.Item{}, fmt.Errorf("ingredient %s: %w", id, apperrors.ErrNotFound)
	}
	return nutrition.Item{Ingredient: ing, Amount: amount}, nil
}

// pendingSession loads the session a resolution acts on.
func (s *CookingService) pendingSession(ctx context.Context, userID uuid.UUID) (*models.CookingSession, error) {
	session, err := s.sessions.Load(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("no cooking session for user %s: %w", userID, apperrors.ErrInvalidSelection)
	}
	if err != nil {
		return nil, err
	}
	if session.Resolved() {
		return nil, fmt.Errorf("cooking session %s is %s: %w", session.ID, session.Status, apperrors.ErrSessionAlreadyResolved)
	}
	if session.Proposal.Data().Empty() {
		return nil, fmt.Errorf("cooking session %s has nothing to resolve: %w", session.ID, apperrors.ErrInvalidSelection)
	}
	return session, nil
}

func (s *CookingService) transition(ctx context.Context, session *models.CookingSession, status models.SessionStatus) error {
	now := time.Now()
	expected := session.Version
	session.Status = status
	session.ResolvedAt = &now
	if err := s.sessions.CompareAndSwap(ctx, session, expected); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("cooking session %s changed concurrently: %w", session.ID, apperrors.ErrSessionAlreadyResolved)
		}
		return err
	}
	return nil
}

// reopen puts a claimed session back to proposed after a failed resolution.
func (s *CookingService) reopen(ctx context.Context, session *models.CookingSession) {
	session.Status = models.SessionProposed
	session.ResolvedAt = nil
	if err := s.sessions.CompareAndSwap(ctx, session, session.Version); err != nil {
		s.log.Error("failed to reopen cooking session",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
}

func originalAmount(p models.Proposal) types.IngredientAmount {
	return types.IngredientAmount{IngredientID: p.OriginalID, Name: p.OriginalName, Amount: p.OriginalAmount, Unit: p.OriginalUnit}
}

func proposalView(session *models.CookingSession) *types.ProposalView {
	p := session.Proposal.Data()
	view := &types.ProposalView{
		SessionID:   session.ID,
		RecipeName:  session.RecipeName,
		Status:      string(session.Status),
		Available:   !p.Empty(),
		Substitutes: []types.SubstituteOption{},
	}
	if !view.Available {
		return view
	}
	original := originalAmount(p)
	view.Original = &original
	for i, c := range p.Candidates {
		view.Substitutes = append(view.Substitutes, types.SubstituteOption{
			Number: i + 1,
			IngredientAmount: types.IngredientAmount{
				IngredientID: c.IngredientID,
				Name:         c.Name,
				Amount:       c.Amount,
				Unit:         c.UnitType,
			},
			Improvement: c.Improvement,
		})
	}
	return view
}
