package util

import (
	"encoding/json"
	"net/http"
)

// StatusCapturingResponseWriter wraps http.ResponseWriter to track the
// status code. The gateway's circuit breaker path inspects the captured
// status after the proxy handler has completed.
type StatusCapturingResponseWriter struct {
	http.ResponseWriter
	StatusCode    int
	HeaderWritten bool
}

// NewStatusCapturingResponseWriter wraps the provided http.ResponseWriter
// with a default status of 200 OK.
func NewStatusCapturingResponseWriter(w http.ResponseWriter) *StatusCapturingResponseWriter {
	return &StatusCapturingResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and writes it to the underlying
// ResponseWriter. Duplicate calls are dropped.
func (w *StatusCapturingResponseWriter) WriteHeader(code int) {
	if w.HeaderWritten {
		return
	}
	w.StatusCode = code
	w.HeaderWritten = true
	w.ResponseWriter.WriteHeader(code)
}

// Write writes data to the underlying ResponseWriter and marks the header
// as written.
func (w *StatusCapturingResponseWriter) Write(b []byte) (int, error) {
	if !w.HeaderWritten {
		w.HeaderWritten = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher for streaming support.
func (w *StatusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compile-time interface assertion.
var _ http.Flusher = (*StatusCapturingResponseWriter)(nil)

// WriteJSON writes v as a JSON response with the given status code.
// Encoding errors are ignored; by the time encoding fails the header has
// already been written and there is nothing useful left to do.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON shape of gateway rejection responses.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Service    string `json:"service,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	Message    string `json:"message,omitempty"`
}
