package middleware

import (
	"net/http"

	"storefront/internal/infrastructure"
)

// HealthCheck answers requests whose path is exactly path with an empty
// 200 text/plain response without calling next. Every other request is
// passed to next unchanged. metrics may be nil.
func HealthCheck(path string, metrics *infrastructure.BootstrapMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != path {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RecordHealthCheck(r.Context(), path)

			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
		})
	}
}
