// ABOUTME: HTTP request logging middleware.
// ABOUTME: Logs method, path, table, status and duration, and feeds the request metrics.

package logging

import (
	"bytes"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ekoru/admin/internal/metrics"
)

const maxBodySize = 1024 // error bodies quoted in the log are cut here

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	// Only error bodies are worth quoting
	if rw.statusCode >= 400 && rw.body.Len() < maxBodySize {
		toCopy := len(b)
		if rw.body.Len()+toCopy > maxBodySize {
			toCopy = maxBodySize - rw.body.Len()
		}
		rw.body.Write(b[:toCopy])
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware logs every request except health checks and metrics scrapes.
// m may be nil.
func Middleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			table := TableFromPath(r.URL.Path)

			start := time.Now()
			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     200,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			label := table
			if label == "" {
				label = "-"
			}
			m.ObserveRequest(r.Method, label, wrapped.statusCode, duration)

			if wrapped.statusCode >= 400 {
				log.Printf("%s %s table=%s status=%d duration=%s error=%q",
					r.Method, r.URL.Path, label, wrapped.statusCode, duration.Round(time.Millisecond),
					strings.TrimSpace(wrapped.body.String()))
				return
			}
			log.Printf("%s %s table=%s status=%d duration=%s",
				r.Method, r.URL.Path, label, wrapped.statusCode, duration.Round(time.Millisecond))
		})
	}
}
