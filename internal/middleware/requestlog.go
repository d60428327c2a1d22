// internal/middleware/requestlog.go
//
// Access log and HTTP metrics.
//
// Context
//   One zap line per request plus the Prometheus request counter and
//   latency histogram.  The route label is chi's route pattern
//   ("/api/v1/contacts/{id}") rather than the raw path, so label
//   cardinality stays bounded.
//
// Notes
//   • A request-scoped logger carrying request_id is placed in the context
//     for handlers (logger.FromContext).
//   • 5xx log at ERROR, 4xx at WARN, everything else at INFO.
//
//------------------------------------------------------------------------------

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/metrics"
)

// statusWriter records the status code and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// RequestLog logs and measures every request through base.
func RequestLog(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(zap.String("request_id", chimw.GetReqID(r.Context())))
			r = r.WithContext(logger.WithContext(r.Context(), l))

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			level := zapcore.InfoLevel
			switch {
			case sw.status >= 500:
				level = zapcore.ErrorLevel
			case sw.status >= 400:
				level = zapcore.WarnLevel
			}
			if ce := l.Check(level, "http request"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("route", route),
					zap.Int("status", sw.status),
					zap.Int("bytes", sw.bytes),
					zap.Duration("elapsed", elapsed),
				)
			}
		})
	}
}

// routePattern is the matched chi pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
