package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/middleware"
	"github.com/pageza/nutrichef/backend/internal/mocks"
	"github.com/pageza/nutrichef/backend/internal/types"
)

const testToken = "valid-token"

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	router  *gin.Engine
	cooking *mocks.MockCookingService
	history *mocks.MockHistoryService
	userID  uuid.UUID
}

func setupRouter(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cooking: new(mocks.MockCookingService),
		history: new(mocks.MockHistoryService),
		userID:  uuid.New(),
	}
	tokens := new(mocks.MockTokenService)
	tokens.On("ValidateToken", testToken).Return(&types.TokenClaims{UserID: h.userID}, nil)
	tokens.On("ValidateToken", mock.Anything).Return(nil, errors.New("invalid token"))

	r := gin.New()
	r.Use(middleware.ErrorHandler(nil))
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(tokens))
	NewCookingHandler(h.cooking).RegisterRoutes(v1)
	NewHistoryHandler(h.history).RegisterRoutes(v1)
	h.router = r

	t.Cleanup(func() {
		h.cooking.AssertExpectations(t)
		h.history.AssertExpectations(t)
	})
	return h
}

func (h *harness) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func oatProposal() *types.ProposalView {
	return &types.ProposalView{
		SessionID:  uuid.New(),
		RecipeName: "Pancakes",
		Status:     "proposed",
		Available:  true,
		Original:   &types.IngredientAmount{Name: "whole milk", Amount: 200, Unit: "g"},
		Substitutes: []types.SubstituteOption{
			{Number: 1, IngredientAmount: types.IngredientAmount{Name: "oat milk", Amount: 200, Unit: "g"}, Improvement: 2},
		},
	}
}

func TestStartCooking(t *testing.T) {
	h := setupRouter(t)
	h.cooking.On("StartCooking", mock.Anything, h.userID, "Pancakes").Return(oatProposal(), nil)

	w := h.do(http.MethodPost, "/api/v1/cooking/start", types.StartCookingRequest{RecipeName: "Pancakes"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	sub, ok := body["substitution"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "whole milk", sub["original"].(map[string]interface{})["name"])
	assert.Len(t, sub["substitutes"], 1)
}

func TestStartCookingNoSubstitution(t *testing.T) {
	h := setupRouter(t)
	h.cooking.On("StartCooking", mock.Anything, h.userID, "Toast").
		Return(&types.ProposalView{RecipeName: "Toast", Status: "proposed"}, nil)

	w := h.do(http.MethodPost, "/api/v1/cooking/start", types.StartCookingRequest{RecipeName: "Toast"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	v, present := body["substitution"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, "No substitution available for Toast", body["message"])
}

func TestStartCookingValidation(t *testing.T) {
	h := setupRouter(t)

	w := h.do(http.MethodPost, "/api/v1/cooking/start", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartCookingUnknownRecipe(t *testing.T) {
	h := setupRouter(t)
	h.cooking.On("StartCooking", mock.Anything, h.userID, "Waffles").
		Return(nil, fmt.Errorf("recipe %q: %w", "Waffles", apperrors.ErrNotFound))

	w := h.do(http.MethodPost, "/api/v1/cooking/start", types.StartCookingRequest{RecipeName: "Waffles"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, decode(t, w)["code"])
}

func TestRequiresAuthentication(t *testing.T) {
	h := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cooking/substitutes", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetSubstitutes(t *testing.T) {
	h := setupRouter(t)
	h.cooking.On("GetSubstitutes", mock.Anything, h.userID).Return(oatProposal(), nil)

	w := h.do(http.MethodGet, "/api/v1/cooking/substitutes", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode(t, w)["substitution"])
}

func TestSelectSubstitute(t *testing.T) {
	h := setupRouter(t)
	res := &types.Resolution{
		Ingredient: types.IngredientAmount{Name: "oat milk", Amount: 200, Unit: "g"},
		Original:   types.IngredientAmount{Name: "whole milk", Amount: 200, Unit: "g"},
		RecordID:   uuid.New(),
	}
	h.cooking.On("ResolveBySelection", mock.Anything, h.userID, 1).Return(res, nil)

	w := h.do(http.MethodPost, "/api/v1/cooking/substitute/1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got types.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, *res, got)
}

func TestSelectSubstituteErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		choice int
		err    error
		status int
		code   string
	}{
		{"not a number", "/api/v1/cooking/substitute/two", 0, nil, http.StatusUnprocessableEntity, apperrors.CodeInvalidSelection},
		{"out of range", "/api/v1/cooking/substitute/9", 9, apperrors.ErrInvalidSelection, http.StatusUnprocessableEntity, apperrors.CodeInvalidSelection},
		{"already resolved", "/api/v1/cooking/substitute/1", 1, apperrors.ErrSessionAlreadyResolved, http.StatusConflict, apperrors.CodeSessionAlreadyResolved},
		{"store failure", "/api/v1/cooking/substitute/1", 1, errors.New("db down"), http.StatusInternalServerError, apperrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupRouter(t)
			if tt.err != nil {
				h.cooking.On("ResolveBySelection", mock.Anything, h.userID, tt.choice).Return(nil, tt.err)
			}

			w := h.do(http.MethodPost, tt.path, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestBlockSubstitute(t *testing.T) {
	h := setupRouter(t)
	blocked := []uuid.UUID{uuid.New(), uuid.New()}
	h.cooking.On("ResolveByBlocking", mock.Anything, h.userID).Return(&types.BlockResult{
		Msg:      "Okay, keeping whole milk.",
		Original: types.IngredientAmount{Name: "whole milk", Amount: 200, Unit: "g"},
		Blocked:  blocked,
	}, nil)

	w := h.do(http.MethodPost, "/api/v1/cooking/block", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got types.BlockResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, blocked, got.Blocked)
}

func TestGetNutriScore(t *testing.T) {
	h := setupRouter(t)
	h.cooking.On("RescoreAfterResolution", mock.Anything, h.userID).Return(&types.RescoreReport{
		RecipeName: "Pancakes",
		Old:        types.ScoreSnapshot{Score: -1, Grade: "A", Weight: 350},
		New:        types.ScoreSnapshot{Score: -2, Grade: "A", Weight: 350},
	}, nil)

	w := h.do(http.MethodGet, "/api/v1/cooking/nutriscore", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got types.RescoreReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, -1, got.Old.Score)
	assert.Equal(t, -2, got.New.Score)
}

func TestListHistory(t *testing.T) {
	h := setupRouter(t)
	entries := []types.HistoryEntry{{ID: uuid.New(), Original: "whole milk", Substitute: "oat milk", Amount: 200, Unit: "g"}}
	h.history.On("ListHistory", mock.Anything, h.userID, "Pancakes").Return(entries, nil)

	w := h.do(http.MethodGet, "/api/v1/cooking/history?recipe=Pancakes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Pancakes", body["recipe"])
	assert.Len(t, body["history"], 1)
}

func TestListHistoryRequiresRecipe(t *testing.T) {
	h := setupRouter(t)
	w := h.do(http.MethodGet, "/api/v1/cooking/history", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHistory(t *testing.T) {
	h := setupRouter(t)
	export := &types.HistoryExport{Key: "exports/a/b/1.json", URL: "https://example.test/x", ExpiresAt: time.Now().Add(time.Minute).UTC()}
	h.history.On("ExportHistory", mock.Anything, h.userID, "Pancakes").Return(export, nil)

	w := h.do(http.MethodPost, "/api/v1/cooking/history/export?recipe=Pancakes", nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, export.URL, decode(t, w)["url"])
}

func TestExportHistoryUnavailable(t *testing.T) {
	h := setupRouter(t)
	h.history.On("ExportHistory", mock.Anything, h.userID, "Pancakes").
		Return(nil, fmt.Errorf("history export: %w", apperrors.ErrUnavailable))

	w := h.do(http.MethodPost, "/api/v1/cooking/history/export?recipe=Pancakes", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.CodeUnavailable, decode(t, w)["code"])
}

func TestHealthCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]Pinger
		status int
		state  string
	}{
		{"healthy", map[string]Pinger{"database": ok, "redis": ok}, http.StatusOK, "healthy"},
		{"degraded", map[string]Pinger{"database": ok, "redis": down}, http.StatusServiceUnavailable, "degraded"},
		{"no dependencies", nil, http.StatusOK, "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tt.checks).HealthCheck)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.state, decode(t, w)["status"])
		})
	}
}
