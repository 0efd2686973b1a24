package middleware

import (
	"context"
	"net"
	"net/http"

	"codeduel/internal/common"
	"codeduel/internal/platform/logging"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit throttles per user, or per client address for anonymous calls.
// When the limiter itself fails the request is let through.
func RateLimit(limiter Limiter, scope string) func(http.Handler) http.Handler {
	logger := logging.Component("ratelimit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if host, _, err := net.SplitHostPort(key); err == nil {
				key = host
			}
			if userID, ok := GetUserIDFromContext(r.Context()); ok {
				key = userID
			}
			allowed, err := limiter.Allow(r.Context(), scope+":"+key)
			if err != nil {
				logger.WithError(err).Warn("rate limiter unavailable")
			} else if !allowed {
				common.RespondWithAppError(w, common.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
