package router

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/nutrichef/backend/internal/api"
	"github.com/pageza/nutrichef/backend/internal/middleware"
	"github.com/pageza/nutrichef/backend/internal/service"
)

// Deps carries everything the routes need. Limiter may be nil.
type Deps struct {
	Cooking        service.ICookingService
	History        service.IHistoryService
	Tokens         middleware.TokenValidator
	Limiter        *middleware.RateLimiter
	Health         *api.HealthHandler
	AllowedOrigins []string
	Log            *zap.Logger
}

// SetupRouter configures the application routes
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		requestid.New(),
		middleware.Logger(d.Log),
		middleware.ErrorHandler(d.Log),
		middleware.CORS(d.AllowedOrigins),
	)

	router.GET("/health", d.Health.HealthCheck)

	// Protected routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(d.Tokens))
	if d.Limiter != nil {
		v1.Use(d.Limiter.RateLimitMiddleware())
	}

	api.NewCookingHandler(d.Cooking).RegisterRoutes(v1)
	api.NewHistoryHandler(d.History).RegisterRoutes(v1)

	return router
}
