package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// AuditLog records every state-changing admin call (key rotation, license
// generation, revocation) as a single entry after the response is written.
// Read-only methods pass through unlogged.
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "audit"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			outcome := "success"
			if ww.Status() >= http.StatusBadRequest {
				outcome = "failure"
			}
			logger.InfoContext(r.Context(), "admin action",
				"event_type", "issuer_mutation",
				"method", r.Method,
				"route", routePattern(r),
				"status", ww.Status(),
				"outcome", outcome,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
				"duration", time.Since(start).String(),
			)
		})
	}
}
