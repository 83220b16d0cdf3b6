package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/school-auth-service/internal/dto"
	"github.com/prperemyshlev/school-auth-service/internal/service"
	"go.uber.org/zap"
)

// RateLimitMiddleware rejects callers over limit requests per window.
// When the limiter itself fails the request is let through.
func RateLimitMiddleware(
	limiter service.RateLimiter,
	limit int,
	window time.Duration,
	keyFunc func(*gin.Context) string,
	logger *zap.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.Allow(c.Request.Context(), keyFunc(c), limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "Too Many Requests",
				Message: "Rate limit exceeded, try again in " + (time.Duration(retryAfter) * time.Second).String(),
			})
			return
		}

		c.Next()
	}
}

// RouteIPKey limits each client per route, so a burst of otp retries does
// not lock out password login
func RouteIPKey(c *gin.Context) string {
	return c.FullPath() + ":" + c.ClientIP()
}
