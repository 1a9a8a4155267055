// Package proxy provides the per-service HTTP reverse proxy.
package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

// hopHeaders are headers that must not be forwarded upstream.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Upstream proxies requests for one service key to its base URL. The
// routing prefix (/<key>) is stripped before forwarding; method, body,
// and remaining headers pass through unchanged.
type Upstream struct {
	key    string
	target *url.URL
	rp     *httputil.ReverseProxy
	logger observability.Logger
}

// Option configures an Upstream.
type Option func(*Upstream)

// WithLogger sets the upstream logger.
func WithLogger(logger observability.Logger) Option {
	return func(u *Upstream) {
		u.logger = logger
	}
}

// WithTransport sets the HTTP transport.
func WithTransport(t http.RoundTripper) Option {
	return func(u *Upstream) {
		u.rp.Transport = t
	}
}

// NewUpstream creates a proxy for one service.
func NewUpstream(key, baseURL string, opts ...Option) (*Upstream, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, util.NewConfigErrorWithCause("url", "invalid upstream URL for "+key, err)
	}

	u := &Upstream{
		key:    key,
		target: target,
		logger: observability.NopLogger(),
	}

	u.rp = &httputil.ReverseProxy{
		Director:     u.director,
		ErrorHandler: u.errorHandler,
	}

	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Key returns the service key this upstream serves.
func (u *Upstream) Key() string {
	return u.key
}

// ServeHTTP forwards the request upstream.
func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.rp.ServeHTTP(w, r)
}

// director rewrites the request for the upstream: strips the service
// prefix, removes hop-by-hop headers, and stamps forwarding headers plus
// the gateway request timestamp.
func (u *Upstream) director(req *http.Request) {
	req.URL.Scheme = u.target.Scheme
	req.URL.Host = u.target.Host

	path := strings.TrimPrefix(req.URL.Path, "/"+u.key)
	if path == "" {
		path = "/"
	}
	req.URL.Path = singleJoin(u.target.Path, path)

	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	if clientIP, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		if prior := req.Header.Get("X-Forwarded-For"); prior != "" {
			clientIP = prior + ", " + clientIP
		}
		req.Header.Set("X-Forwarded-For", clientIP)
	}

	if req.TLS != nil {
		req.Header.Set("X-Forwarded-Proto", "https")
	} else {
		req.Header.Set("X-Forwarded-Proto", "http")
	}
	req.Header.Set("X-Forwarded-Host", req.Host)

	if id := observability.RequestIDFromContext(req.Context()); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	req.Header.Set("X-Request-Timestamp", time.Now().UTC().Format(time.RFC3339Nano))

	req.Host = u.target.Host
}

// errorHandler translates transport failures into the gateway error
// shape. Timeouts and cancellations report 504, everything else 502; the
// breaker wrapper reads the status from the capturing writer.
func (u *Upstream) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if r.Context().Err() == context.DeadlineExceeded {
		status = http.StatusGatewayTimeout
	}

	u.logger.Warn("upstream request failed",
		observability.String("service", u.key),
		observability.String("path", r.URL.Path),
		observability.Error(err),
	)

	util.WriteJSON(w, status, util.ErrorResponse{
		Success: false,
		Error:   "SERVICE_ERROR",
		Service: u.key,
	})
}

// singleJoin joins two URL path segments with exactly one slash.
func singleJoin(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	default:
		return a + b
	}
}
