package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/resilience"
)

// RateLimit rejects requests with 429 once limiter's bucket is empty.
func RateLimit(limiter *resilience.RateLimiter) gin.HandlerFunc {
	retryAfter := "1"
	if r := limiter.Rate(); r > 0 && r < 1 {
		retryAfter = strconv.Itoa(int(1/r + 0.5))
	}
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", retryAfter)
			abort(c, apperrors.RateLimited())
			return
		}
		c.Next()
	}
}
