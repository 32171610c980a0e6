package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/metrics"
	"github.com/mysqft/leadcapture/internal/ratelimit"
)

// RateLimit rejects callers over the limit before any tenant lookup. The
// identity is gin's ClientIP, which honours the trusted platform header and
// trusted proxies. Limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, collector *metrics.Collector, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request",
				zap.String("client_ip", ip),
				zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			collector.RecordRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": core.KindRateLimited.Message()})
			return
		}

		c.Next()
	}
}
