package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
)

// HeaderUserID carries the caller identity. It is trusted as is; the
// service sits behind an authenticating gateway.
const HeaderUserID = "X-User-ID"

const maxUserIDLen = 128

// Actor puts the caller identity from X-User-ID into the request context.
// Requests without the header act as the system actor.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if len(uid) > maxUserIDLen {
			_ = c.Error(apperror.NewValidation("user id too long").WithDetail("header", HeaderUserID))
			c.Abort()
			return
		}
		if uid != "" {
			c.Request = c.Request.WithContext(appctx.WithActor(c.Request.Context(), uid))
		}
		c.Next()
	}
}
