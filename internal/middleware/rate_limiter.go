package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SignupRateLimiter throttles the public registration route with one
// shared token bucket. The route is unauthenticated, so there is no
// caller identity worth keying on; the concern is abusive bursts, not
// per-client fairness.
type SignupRateLimiter struct {
	limiter *rate.Limiter
}

// NewSignupRateLimiter allows perMinute registrations with a burst of
// the same size.
func NewSignupRateLimiter(perMinute int) *SignupRateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &SignupRateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

func (rl *SignupRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many registration attempts, try again later",
			})
			return
		}
		c.Next()
	}
}
