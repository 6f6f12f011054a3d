package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/middleware"
	"github.com/pageza/nutrichef/backend/internal/service"
	"github.com/pageza/nutrichef/backend/internal/types"
)

type CookingHandler struct {
	cooking service.ICookingService
}

func NewCookingHandler(cooking service.ICookingService) *CookingHandler {
	return &CookingHandler{cooking: cooking}
}

func (h *CookingHandler) RegisterRoutes(router *gin.RouterGroup) {
	cooking := router.Group("/cooking")
	{
		cooking.POST("/start", h.StartCooking)
		cooking.GET("/substitutes", h.GetSubstitutes)
		cooking.POST("/substitute/:selectedNumber", h.SelectSubstitute)
		cooking.POST("/block", h.BlockSubstitute)
		cooking.GET("/nutriscore", h.GetNutriScore)
	}
}

// currentUser reads the authenticated user or answers 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

func (h *CookingHandler) StartCooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.StartCookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipe_name is required"})
		return
	}

	view, err := h.cooking.StartCooking(c.Request.Context(), userID, req.RecipeName)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, substitutionBody(view))
}

func (h *CookingHandler) GetSubstitutes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.cooking.GetSubstitutes(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, substitutionBody(view))
}

// substitutionBody answers {"substitution": null} when nothing can be offered.
func substitutionBody(view *types.ProposalView) gin.H {
	if !view.Available {
		return gin.H{
			"substitution": nil,
			"session_id":   view.SessionID,
			"recipe_name":  view.RecipeName,
			"message":      fmt.Sprintf("No substitution available for %s", view.RecipeName),
		}
	}
	return gin.H{"substitution": view}
}

func (h *CookingHandler) SelectSubstitute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	choice, err := strconv.Atoi(c.Param("selectedNumber"))
	if err != nil {
		_ = c.Error(fmt.Errorf("choice %q is not a number: %w", c.Param("selectedNumber"), apperrors.ErrInvalidSelection))
		return
	}

	res, err := h.cooking.ResolveBySelection(c.Request.Context(), userID, choice)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CookingHandler) BlockSubstitute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	res, err := h.cooking.ResolveByBlocking(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CookingHandler) GetNutriScore(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	report, err := h.cooking.RescoreAfterResolution(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}
