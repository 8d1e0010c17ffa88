package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
)

type logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type responseStats struct {
	status int
	size   int
}

type statsWriter struct {
	http.ResponseWriter
	stats responseStats
}

func newStatsWriter(w http.ResponseWriter) *statsWriter {
	return &statsWriter{ResponseWriter: w, stats: responseStats{status: http.StatusOK}}
}

func (w *statsWriter) Write(p []byte) (int, error) {
	size, err := w.ResponseWriter.Write(p)
	w.stats.size += size
	return size, err
}

func (w *statsWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.stats.status = statusCode
}

// accessEntry collects request details known only to inner handlers
type accessEntry struct {
	actor *models.Actor
}

type accessEntryKey struct{}

// noteActor attaches the authenticated actor to the access log line of the request
func noteActor(ctx context.Context, actor models.Actor) {
	if e, ok := ctx.Value(accessEntryKey{}).(*accessEntry); ok {
		e.actor = &actor
	}
}

// LoggerMiddleware writes one access log line per request.
// Route is the matched ServeMux pattern, so it must wrap the mux (directly or through other middlewares).
// Server errors are logged at error level.
func LoggerMiddleware(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			entry := &accessEntry{}
			r = r.WithContext(context.WithValue(r.Context(), accessEntryKey{}, entry))
			sw := newStatsWriter(w)

			next.ServeHTTP(sw, r)

			args := []any{
				"method", r.Method,
				"route", r.Pattern,
				"uri", r.RequestURI,
				"status", sw.stats.status,
				"size", sw.stats.size,
				"duration", time.Since(start),
			}
			if entry.actor != nil {
				args = append(args, "actor_id", entry.actor.ID, "role", entry.actor.Role)
			}

			if sw.stats.status >= http.StatusInternalServerError {
				l.Error("HTTP request failed", args...)
				return
			}
			l.Info("HTTP request served", args...)
		})
	}
}
