package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/caremap/caredirectory/backend/internal/infrastructure/observability"
)

// RequestIDMiddleware assigns every request a UUID, honoring an inbound
// X-Request-ID header, and exposes it to handlers and the response
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		ctx := observability.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
