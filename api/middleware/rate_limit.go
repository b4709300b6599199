package middleware

import (
	"net"
	"net/http"
	"strings"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/angelmondragon/orderdesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

// RateLimit throttles by organization and user once Auth has run, and by
// client IP before that. A nil limiter disables throttling.
func RateLimit(lim *limiter.Limiter, policy string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if lim == nil {
			return next
		}
		mw := stdlib.NewMiddleware(lim,
			stdlib.WithKeyGetter(func(r *http.Request) string {
				return rateLimitKey(r, policy)
			}),
			stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"policy": policy,
						"key":    rateLimitKey(r, policy),
					})
					logg.Warn(ctx, "rate_limit.blocked")
				}
				responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
			}),
			stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
			}),
		)
		return mw.Handler(next)
	}
}

func rateLimitKey(r *http.Request, policy string) string {
	if actor, ok := ActorFromContext(r.Context()); ok {
		return policy + ":" + actor.OrganizationID.String() + ":" + actor.UserID.String()
	}
	return policy + ":ip:" + clientIP(r)
}

// NewLimiter parses a formatted rate such as "120-M".
func NewLimiter(store limiter.Store, formatted string) (*limiter.Limiter, error) {
	if store == nil || strings.TrimSpace(formatted) == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(strings.TrimSpace(formatted))
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
