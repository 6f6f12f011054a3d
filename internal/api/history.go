package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/nutrichef/backend/internal/service"
)

type HistoryHandler struct {
	history service.IHistoryService
}

func NewHistoryHandler(history service.IHistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	history := router.Group("/cooking/history")
	{
		history.GET("", h.ListHistory)
		history.POST("/export", h.ExportHistory)
	}
}

func recipeQuery(c *gin.Context) (string, bool) {
	recipe := c.Query("recipe")
	if recipe == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipe query parameter is required"})
		return "", false
	}
	return recipe, true
}

func (h *HistoryHandler) ListHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recipe, ok := recipeQuery(c)
	if !ok {
		return
	}

	entries, err := h.history.ListHistory(c.Request.Context(), userID, recipe)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe, "history": entries})
}

func (h *HistoryHandler) ExportHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recipe, ok := recipeQuery(c)
	if !ok {
		return
	}

	export, err := h.history.ExportHistory(c.Request.Context(), userID, recipe)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, export)
}
