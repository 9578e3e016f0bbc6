package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Default limits for authentication entry points.
const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// HitRecorder counts requests rejected by the limiter. A nil recorder
// disables recording.
type HitRecorder interface {
	RecordRateLimitHit()
}

// Middleware returns a middleware limiting attempts per client address.
// It is meant for authentication entry points only. Exceeding maxAttempts
// within the window yields 429 with a retryAfter hint in seconds.
//
// Counter backend failures log a warning and let the request through: the
// limiter is a brake on brute force, not an authentication control, and
// authentication itself still fails closed.
func Middleware(counter Counter, maxAttempts int64, window time.Duration, recorder HitRecorder, logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("component", "ratelimit").Logger()

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientAddr(r)

			count, remaining, err := counter.Increment(r.Context(), clientID, window)
			if err != nil {
				log.Warn().Err(err).Str("client", clientID).Msg("rate limit backend error, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if count > maxAttempts {
				if recorder != nil {
					recorder.RecordRateLimitHit()
				}
				retryAfter := int(math.Ceil(remaining.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"message":    "Too many authentication attempts. Please try again later.",
					"error":      "RATE_LIMIT_EXCEEDED",
					"retryAfter": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr derives the limiter key from the request. chi's RealIP
// middleware rewrites RemoteAddr from X-Forwarded-For upstream of this.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
