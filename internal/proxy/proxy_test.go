package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

func TestNewUpstreamInvalidURL(t *testing.T) {
	_, err := NewUpstream("books", "http://bad url with spaces")
	assert.Error(t, err)
}

func TestPrefixStripping(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantPath string
	}{
		{"subpath", "/books/123/chapters", "/123/chapters"},
		{"bare prefix", "/books", "/"},
		{"prefix with slash", "/books/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			up, err := NewUpstream("books", srv.URL)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			up.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestForwardingHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	up, err := NewUpstream("books", srv.URL)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/books/1", nil)
	r.RemoteAddr = "10.0.0.5:44321"
	r.Host = "gateway.local"
	r.Header.Set("Connection", "keep-alive")
	r = r.WithContext(observability.ContextWithRequestID(r.Context(), "req-123"))

	up.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "10.0.0.5", got.Get("X-Forwarded-For"))
	assert.Equal(t, "http", got.Get("X-Forwarded-Proto"))
	assert.Equal(t, "gateway.local", got.Get("X-Forwarded-Host"))
	assert.Equal(t, "req-123", got.Get("X-Request-ID"))

	ts := got.Get("X-Request-Timestamp")
	require.NotEmpty(t, ts)
	_, err = time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestBodyAndMethodPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"title":"Go"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	up, err := NewUpstream("books", srv.URL)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/books", io.NopCloser(
		&stringReader{s: `{"title":"Go"}`}))
	up.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

// stringReader avoids pulling strings.Reader's extra interfaces into the
// request body, forcing a plain stream.
type stringReader struct {
	s   string
	pos int
}

func (r *stringReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.pos:])
	r.pos += n
	return n, nil
}

func TestErrorHandlerBadGateway(t *testing.T) {
	up, err := NewUpstream("books", "http://127.0.0.1:1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	up.ServeHTTP(rec, httptest.NewRequest("GET", "/books/1", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp util.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "SERVICE_ERROR", resp.Error)
	assert.Equal(t, "books", resp.Service)
}

func TestErrorHandlerGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	up, err := NewUpstream("books", srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	up.ServeHTTP(rec, httptest.NewRequest("GET", "/books/1", nil).WithContext(ctx))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestSingleJoin(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"", "/x", "/x"},
		{"/api", "/x", "/api/x"},
		{"/api/", "/x", "/api/x"},
		{"/api", "x", "/api/x"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, singleJoin(tt.a, tt.b), "join(%q, %q)", tt.a, tt.b)
	}
}
