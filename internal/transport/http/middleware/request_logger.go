package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	reqctx "github.com/baechuer/user-service/internal/pkg/context"
)

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

// RequestLogger attaches a request-scoped child of base to the context
// (see logger.WithCtx) and writes one access line per request.
// Must run after RequestID.
func RequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lg := base.With().
				Str("request_id", reqctx.GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(sw, r.WithContext(lg.WithContext(r.Context())))

			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			ev := lg.Info()
			if sw.status >= http.StatusInternalServerError {
				ev = lg.Error()
			}
			ev.Int("status", sw.status).
				Int("bytes", sw.bytes).
				Dur("latency", time.Since(start)).
				Str("remote_ip", clientIP(r)).
				Msg("http_request")
		})
	}
}
