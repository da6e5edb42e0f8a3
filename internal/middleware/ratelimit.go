package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/linkhub/redirector/internal/observability"
	"github.com/linkhub/redirector/internal/ratelimit"
)

// ClientIdentifier derives the rate-limit key for a request: first
// X-Forwarded-For entry, then the direct connection address, then a
// shared "unknown" bucket.
func ClientIdentifier(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// RateLimit applies a fixed-window policy before the handler runs.
// Limiter errors fail open: a broken counter store must not take the
// redirect route down with it.
func RateLimit(limiter ratelimit.Limiter, policy ratelimit.Policy, metrics *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		decision, err := limiter.Allow(ctx, ClientIdentifier(c.Request), policy)
		if err != nil {
			logger.WarnContext(ctx, "rate limiter unavailable, failing open",
				slog.String("policy", policy.Name),
				slog.String("error", err.Error()))
			c.Next()
			return
		}

		if !decision.Allowed {
			metrics.RecordRateLimited(ctx, policy.Name)
			retryAfter := int(decision.RetryAfter.Seconds() + 0.999)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   http.StatusText(http.StatusTooManyRequests),
				"message": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
