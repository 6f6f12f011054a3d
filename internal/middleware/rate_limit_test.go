package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/testhelpers"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userIDKey, id)
		c.Next()
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	rl := NewCookingRateLimiter(client, 2, time.Minute, nil)
	userID := uuid.New()

	r := gin.New()
	r.Use(withUser(userID), rl.RateLimitMiddleware())
	r.GET("/turn", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/turn", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/turn", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	allowed, _, _, err := rl.IsAllowed(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	rl := NewCookingRateLimiter(client, 1, time.Minute, nil)

	r := gin.New()
	r.Use(withUser(uuid.New()), rl.RateLimitMiddleware())
	r.GET("/turn", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/turn", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rate limit check failed", w.Header().Get("X-RateLimit-Error"))
}

func TestRateLimitRequiresUser(t *testing.T) {
	rl := NewCookingRateLimiter(nil, 1, time.Minute, nil)
	r := gin.New()
	r.Use(rl.RateLimitMiddleware())
	r.GET("/turn", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/turn", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
