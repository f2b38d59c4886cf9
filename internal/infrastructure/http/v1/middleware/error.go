package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		body := gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{"request_id": c.GetString("request_id")},
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			status = appErr.HTTPStatus
			body = gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}
			if appErr.Code == apperror.CodeConsistency {
				c.Header("Retry-After", "1")
			}
		} else {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
		}

		// Idempotency conflicts are not stored: the key belongs to another request.
		if !apperror.HasCode(err, apperror.CodeIdempotency) {
			failIdempotency(c, status, body)
		}
		c.JSON(status, body)
	}
}

// failIdempotency records the error response for replay (best-effort).
func failIdempotency(c *gin.Context, status int, body any) {
	key, ok := c.Get(handlers.CtxIdempotencyKey)
	if !ok {
		return
	}
	v, _ := c.Get(handlers.CtxIdempotencyStore)
	store, ok := v.(idempotency.Store)
	if !ok {
		return
	}
	if err := store.FailKey(c.Request.Context(), key.(string), status, "application/json", body); err != nil {
		logger.Warn(c.Request.Context(), "idempotency failure record failed", "key", key, "error", err)
	}
}
