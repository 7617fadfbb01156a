package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count, latency and in-flight requests. The path
// label is the matched chi route pattern so ids in URLs never explode the
// label space.
func Metrics(m *prometheus.PillMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPActiveRequests.WithLabelValues(r.Method).Inc()
			defer m.HTTPActiveRequests.WithLabelValues(r.Method).Dec()

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					pattern = p
				}
			}
			prometheus.RecordHTTPRequest(m, r.Method, pattern, wrapped.statusCode, time.Since(start))
		})
	}
}

//Personal.AI order the ending
