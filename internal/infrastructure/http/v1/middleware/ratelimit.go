package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"stockledger/internal/core/apperror"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "300-M" for 300 requests per minute.
func RateLimit(rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", rate, err)
	}

	instance := limiter.New(memory.NewStore(), r)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			_ = c.Error(apperror.NewRateLimited(r.Limit).WithDetail("period", r.Period.String()))
			c.Abort()
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			_ = c.Error(apperror.NewInternal(fmt.Errorf("rate limiter: %w", err)))
			c.Abort()
		}),
	), nil
}
