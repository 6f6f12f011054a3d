package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockCookingService is a mock implementation of the CookingService interface
type MockCookingService struct {
	mock.Mock
}

func (m *MockCookingService) StartCooking(ctx context.Context, userID uuid.UUID, recipeName string) (*types.ProposalView, error) {
	args := m.Called(ctx, userID, recipeName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ProposalView), args.Error(1)
}

func (m *MockCookingService) GetSubstitutes(ctx context.Context, userID uuid.UUID) (*types.ProposalView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ProposalView), args.Error(1)
}

func (m *MockCookingService) ResolveBySelection(ctx context.Context, userID uuid.UUID, choice int) (*types.Resolution, error) {
	args := m.Called(ctx, userID, choice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Resolution), args.Error(1)
}

func (m *MockCookingService) ResolveByBlocking(ctx context.Context, userID uuid.UUID) (*types.BlockResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BlockResult), args.Error(1)
}

func (m *MockCookingService) RescoreAfterResolution(ctx context.Context, userID uuid.UUID) (*types.RescoreReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RescoreReport), args.Error(1)
}

// MockHistoryService is a mock implementation of the HistoryService interface
type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) ListHistory(ctx context.Context, userID uuid.UUID, recipeName string) ([]types.HistoryEntry, error) {
	args := m.Called(ctx, userID, recipeName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.HistoryEntry), args.Error(1)
}

func (m *MockHistoryService) ExportHistory(ctx context.Context, userID uuid.UUID, recipeName string) (*types.HistoryExport, error) {
	args := m.Called(ctx, userID, recipeName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.HistoryExport), args.Error(1)
}
