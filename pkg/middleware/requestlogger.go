package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Lnando2k21/projetofinal/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// the correlation ID, the authenticated actor and the active span. Mount it
// after RequestLogging and Tracing, and again after Auth on protected routes
// so the actor fields are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := UserIDFromContext(ctx); id != "" {
				ctx = logger.WithActor(ctx, id, RoleFromContext(ctx))
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
