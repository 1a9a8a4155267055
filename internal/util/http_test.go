package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCapturingResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewStatusCapturingResponseWriter(rec)

	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.False(t, w.HeaderWritten)

	w.WriteHeader(http.StatusBadGateway)
	assert.Equal(t, http.StatusBadGateway, w.StatusCode)
	assert.True(t, w.HeaderWritten)

	// Duplicate calls are dropped.
	w.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusBadGateway, w.StatusCode)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStatusCapturingImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewStatusCapturingResponseWriter(rec)

	_, err := w.Write([]byte("body"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.True(t, w.HeaderWritten)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusTooManyRequests, ErrorResponse{
		Success:    false,
		Error:      "RATE_LIMIT_EXCEEDED",
		RetryAfter: 30,
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Error)
	assert.Equal(t, 30, resp.RetryAfter)
}

func TestErrorResponseOmitsEmpty(t *testing.T) {
	b, err := json.Marshal(ErrorResponse{Success: false, Error: "X"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"success":false,"error":"X"}`, string(b))
}
