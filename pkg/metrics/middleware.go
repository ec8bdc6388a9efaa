package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/picking-service/pkg/httputil"
)

// Middleware records request count and latency per route pattern.
// /metrics itself is not recorded.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := httputil.NewStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			// Route pattern keeps label cardinality bounded
			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			m.RecordHTTPRequest(r.Method, path, wrapped.Status(), time.Since(start))
		})
	}
}
