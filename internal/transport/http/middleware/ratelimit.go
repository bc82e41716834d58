package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/logger"
)

type RateLimitConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration
	// NewCounter supplies shared counter state (redis); nil keeps counts in process.
	NewCounter func() httprate.LimitCounter
}

// AuditFunc records rate-limit rejections; nil disables it.
type AuditFunc func(ctx context.Context, action string, fields map[string]string)

// RateLimitAuth limits each source address per route with httprate's
// sliding-window counter. Counter errors fail open.
func RateLimitAuth(cfg RateLimitConfig, writeErr WriteErrFunc, auditFn AuditFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.RouteKey == "" {
		cfg.RouteKey = "unknown"
	}
	retryAfter := max(1, int(math.Ceil(cfg.Window.Seconds())))

	return func(next http.Handler) http.Handler {
		if cfg.Limit <= 0 {
			return next
		}

		opts := []httprate.Option{
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return cfg.RouteKey + ":" + clientIP(r), nil
			}),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				RateLimitedTotal.WithLabelValues(cfg.RouteKey).Inc()
				if auditFn != nil {
					auditFn(r.Context(), "rate_limit.exceeded", map[string]string{
						"route":  cfg.RouteKey,
						"ip":     clientIP(r),
						"result": "rate_limited",
					})
				}
				writeErr(w, r, domain.ErrRateLimited(cfg.RouteKey, retryAfter))
			}),
			httprate.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				lg := logger.WithCtx(r.Context())
				lg.Warn().Err(err).Str("route", cfg.RouteKey).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
			}),
		}
		if cfg.NewCounter != nil {
			opts = append(opts, httprate.WithLimitCounter(cfg.NewCounter()))
		}
		return httprate.NewRateLimiter(cfg.Limit, cfg.Window, opts...).Handler(next)
	}
}

// clientIP trusts the first X-Forwarded-For hop; only deploy behind a proxy you control.
func clientIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
