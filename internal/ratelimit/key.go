package ratelimit

import (
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
)

// GlobalScope is the pseudo service key for the identity-wide cap that
// applies across all services.
const GlobalScope = "global"

// KeyForService derives the rate limit key for a request and service:
// "user:<id>:<service>" when an authenticated identity is present, else
// "ip:<addr>:<service>". Requests with no resolvable address bucket
// together under "ip:unknown:<service>".
func KeyForService(r *http.Request, serviceKey string) string {
	if userID := identityFrom(r); userID != "" {
		return "user:" + userID + ":" + serviceKey
	}

	ip := ClientIP(r)
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip + ":" + serviceKey
}

// GlobalKey derives the service-independent key for the same identity.
func GlobalKey(r *http.Request) string {
	return KeyForService(r, GlobalScope)
}

// identityFrom resolves the caller identity. The request context wins
// (set by the upstream auth layer); otherwise the bearer token's subject
// is used for bucketing. The token is parsed without signature
// verification: authentication is out of scope here and a forged subject
// only selects a different bucket.
func identityFrom(r *http.Request) string {
	if id := observability.UserIDFromContext(r.Context()); id != "" {
		return id
	}

	auth := r.Header.Get("Authorization")
	if len(auth) < 8 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}

	tok, err := jwt.ParseInsecure([]byte(strings.TrimSpace(auth[7:])))
	if err != nil {
		return ""
	}
	return tok.Subject()
}

// ClientIP extracts the client IP from the request, preferring proxy
// headers over the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	ip = strings.TrimPrefix(ip, "[")
	ip = strings.TrimSuffix(ip, "]")

	return ip
}
