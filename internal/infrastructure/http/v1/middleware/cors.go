package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the back-office frontend on the given origins.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{
		"Origin", "Content-Length", "Content-Type",
		HeaderUserID, HeaderIdempotencyKey, HeaderRequestID, HeaderTraceID,
	}
	config.ExposeHeaders = []string{HeaderRequestID, HeaderTraceID, "Retry-After"}
	config.MaxAge = 12 * time.Hour
	return cors.New(config)
}
