package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/metrics"
	"github.com/shopforge/invoicepress/internal/ratelimit"
)

const (
	// HeaderShop carries the calling shop's domain on every API request.
	HeaderShop = "X-Shop-Domain"

	contextShopKey = "shop"
)

// Per-shop request caps for the generation endpoints.
const (
	singleRateLimit = 60
	bulkRateLimit   = 10
	rateWindow      = time.Minute
)

// ShopRequired resolves the tenant from the request header. Every API
// route below /api requires it.
func ShopRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderShop)))
		if shop == "" {
			AbortWithError(c, apperr.NewValidation([]string{"X-Shop-Domain header is required"}))
			return
		}
		c.Set(contextShopKey, shop)
		c.Next()
	}
}

func shopFrom(c *gin.Context) string {
	return c.GetString(contextShopKey)
}

// LoggingMiddleware emits one structured access line per request.
func LoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	accessLog := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("shop", shopFrom(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
			accessLog.Warn("request failed", fields...)
			return
		}
		accessLog.Info("request", fields...)
	}
}

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// RateLimit throttles a generation endpoint per shop.
func RateLimit(limiter *ratelimit.Limiter, scope string, limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), scope+":"+shopFrom(c), limit, rateWindow) {
			AbortWithError(c, errRateLimited)
			return
		}
		c.Next()
	}
}
