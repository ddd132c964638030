package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseTap captures the status code and body size as the handler
// writes, without changing what goes on the wire.
type responseTap struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (t *responseTap) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTap) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the hijacker and flusher
// underneath, which the websocket upgrade needs.
func (t *responseTap) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

// RequestLogger logs one line per request. Server errors log at error
// level so they stand out at the default info level.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tap := &responseTap{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(tap, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", tap.status,
				"bytes", tap.bytes,
				"duration", time.Since(start).Round(time.Microsecond),
				"remote", RealIP(r),
			}
			if tap.status >= 500 {
				logger.Error("request", attrs...)
			} else {
				logger.Info("request", attrs...)
			}
		})
	}
}
