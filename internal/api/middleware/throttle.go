package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-stamp-market/internal/api/shared/errors"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/ratelimit"
)

// Throttle limits engagement events per client, route and entity.
// Limiter failures let the request through.
func Throttle(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath() + ":" + c.Param("id")

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "Engagement limiter unavailable",
				zap.Error(err),
				zap.String("request_id", c.GetString("request_id")),
			)
			c.Next()
			return
		}

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": apierrors.NewRateLimitedError("Too many engagement events, slow down"),
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Next()
	}
}
