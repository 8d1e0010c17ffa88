package middleware

import (
	"net/http"
	"time"
)

type httpObserver interface {
	ObserveHTTP(route string, status int, d time.Duration)
}

// MetricsMiddleware records request duration by route pattern
// Must wrap the ServeMux itself so the matched pattern is visible after the call
func MetricsMiddleware(o httpObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			sw := newStatsWriter(w)

			next.ServeHTTP(sw, r)

			o.ObserveHTTP(r.Pattern, sw.stats.status, time.Since(start))
		})
	}
}
