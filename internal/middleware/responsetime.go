package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// ResponseTimeHeader carries the gateway-measured handling time.
const ResponseTimeHeader = "X-Response-Time"

// timingResponseWriter injects the response time header just before the
// headers flush, the last moment the value can still be written.
type timingResponseWriter struct {
	http.ResponseWriter
	start   time.Time
	written bool
}

func (w *timingResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.written = true
		elapsed := time.Since(w.start)
		w.Header().Set(ResponseTimeHeader,
			strconv.FormatInt(elapsed.Milliseconds(), 10)+"ms")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (w *timingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ResponseTime returns a middleware that stamps X-Response-Time on every
// response.
func ResponseTime() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&timingResponseWriter{
				ResponseWriter: w,
				start:          time.Now(),
			}, r)
		})
	}
}
