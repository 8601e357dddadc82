package http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// maxLoggedBody caps request and response bodies written to debug logs.
const maxLoggedBody = 10000

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "...(truncated)"
}

// requestLogger logs one line per request. Bodies are only captured at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			debug := logger.Enabled(r.Context(), slog.LevelDebug)

			var reqBody string
			if debug && r.Body != nil {
				data, err := io.ReadAll(r.Body)
				if err == nil {
					reqBody = string(data)
					r.Body = io.NopCloser(bytes.NewReader(data))
				}
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var respBody bytes.Buffer
			if debug {
				ww.Tee(&respBody)
			}

			next.ServeHTTP(ww, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			logger.Info("HTTP request", attrs...)
			if debug {
				logger.Debug("HTTP payload",
					"request_id", middleware.GetReqID(r.Context()),
					"request_body", truncate(reqBody),
					"response_body", truncate(respBody.String()),
				)
			}
		})
	}
}
