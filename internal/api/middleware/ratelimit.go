package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/powdertracker/powdertracker/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration

	// PerEndpoint gives each path its own budget instead of sharing one
	// across every route the limiter guards.
	PerEndpoint bool
}

var (
	// BatchRateLimit guards the batch endpoints. A cache miss fans out to
	// every upstream provider, so the budget is tighter and per endpoint.
	BatchRateLimit = RateLimitConfig{
		RequestLimit: 60,
		WindowLength: time.Minute,
		PerEndpoint:  true,
	}

	// StandardRateLimit guards registry lookups and history.
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP limits requests per client IP as resolved by chi's RealIP.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Round(time.Second).Seconds()))

	keys := []httprate.KeyFunc{httprate.KeyByRealIP}
	if cfg.PerEndpoint {
		keys = append(keys, httprate.KeyByEndpoint)
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keys...),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the reset time; the window length is an upper bound.
			w.Header().Set("Retry-After", retryAfter)
			models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").Write(w)
		}),
	)
}
