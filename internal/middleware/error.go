package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/logging"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorHandler turns the last error attached with c.Error into a JSON
// response and converts panics into 500s.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	log = logging.OrNop(log)
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: "internal server error",
					Code:  apperrors.CodeInternal,
				})
			}
		}()

		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		status := apperrors.HTTPStatus(last.Err)
		msg := last.Error()
		if status == http.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(last.Err))
			msg = "internal server error"
		}
		c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: apperrors.Code(last.Err)})
	}
}
