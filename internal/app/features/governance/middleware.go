// internal/app/features/governance/middleware.go
package governance

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/civic/internal/app/features/errors"
	"github.com/dalemusser/civic/internal/app/system/authz"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey string

const requestIDKey ctxKey = "requestID"

// RequestID tags every request with a correlation id, reusing the caller's
// X-Request-ID when it is a valid UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(uierrors.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(uierrors.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// limitWrites applies h.Limiter to state-changing requests, keyed by the
// signed-in user. Reads are never limited.
func (h *Handler) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		_, userID, ok := authz.UserCtx(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		key := userID.Hex()
		if !h.Limiter.Allow(key) {
			h.Log.Warn("governance write rate limited",
				zap.String("user_id", key),
				zap.String("path", r.URL.Path))
			uierrors.TooManyRequests(w, h.Limiter.RetryAfter(key))
			return
		}
		next.ServeHTTP(w, r)
	})
}
