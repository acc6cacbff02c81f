package api

import (
	"net/http"
	"strconv"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/metrics"
	"github.com/wallet-insights/internal/ratelimit"
)

// Refusal messages per limiter
var rateLimitMessages = map[string]string{
	ratelimit.General: "Too many requests from this IP, please try again after 15 minutes",
	ratelimit.Auth:    "Too many authentication attempts",
	ratelimit.AI:      "AI analysis rate limit exceeded",
}

// keyFunc picks the bucket a request counts against
type keyFunc func(r *http.Request) string

func keyByIP(r *http.Request) string {
	return "ip:" + clientIP(r)
}

func keyByUserOrIP(r *http.Request) string {
	if user := currentUser(r); user != nil {
		return "user:" + user.ID
	}
	return keyByIP(r)
}

// RateLimitMiddleware refuses requests over the limiter's budget with 429.
// If the limiter backend fails the request is let through.
func RateLimitMiddleware(l ratelimit.Limiter, key keyFunc) func(http.Handler) http.Handler {
	rule := l.Rule()
	message, ok := rateLimitMessages[rule.Name]
	if !ok {
		message = "Rate limit exceeded"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := l.Allow(r.Context(), key(r))
			if err != nil {
				logging.FromContext(r.Context()).
					WithError(err).
					WithField("limiter", rule.Name).
					Warn("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				retryAfter := ratelimit.RetryAfterSeconds(decision.RetryAfter)
				metrics.RateLimitRejections.WithLabelValues(rule.Name).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				respondError(w, http.StatusTooManyRequests, apperrors.CodeRateLimit, message, map[string]interface{}{
					"retryAfter": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
