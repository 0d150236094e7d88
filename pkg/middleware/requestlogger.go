package middleware

import (
	"log/slog"
	"net/http"

	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, admin_id,
// trace_id and span_id in the request context, for logger.FromContext.
//
// Mount it after RequestLogging and Tracing. On admin routes mount it again
// after Auth so the admin id is picked up.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := AdminIDFromContext(ctx); id != "" && logger.AdminIDFromContext(ctx) == "" {
				ctx = logger.WithAdminID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
