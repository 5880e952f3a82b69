package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/common"
)

// CodeRateLimited is the error code of a rejected request.
const CodeRateLimited = "RATE_LIMITED"

// Config picks the bucket and budget for a route group.
type Config struct {
	// Scope prefixes keys so the auth and api limits on one client stay apart.
	Scope string
	Key   func(*http.Request) string
	Rate  Rate
}

func (c Config) bucket(r *http.Request) string {
	if c.Scope == "" {
		return c.Key(r)
	}
	return c.Scope + ":" + c.Key(r)
}

// Handler answers 429 once a client spends its budget. Limiter failures
// fail open and are reported to OnError.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware wraps next with the limit.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.Limiter.Take(r.Context(), h.Config.bucket(r), h.Config.Rate)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("scope", h.Config.Scope).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		writeHeaders(w.Header(), h.Config.Rate, d)
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		wait := retryAfter(d.Reset)
		w.Header().Set("Retry-After", strconv.Itoa(wait))
		common.JSONError(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", map[string]any{"retryAfter": wait})
	})
}

func writeHeaders(h http.Header, rate Rate, d Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(rate.Limit, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

// retryAfter rounds up so a client honouring it never retries early.
func retryAfter(reset time.Time) int {
	secs := math.Ceil(time.Until(reset).Seconds())
	return max(int(secs), 1)
}

// KeyByIP buckets requests by client address.
func KeyByIP(r *http.Request) string {
	return common.ClientIP(r)
}
