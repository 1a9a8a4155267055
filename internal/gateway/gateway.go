// Package gateway composes the registry, breakers, rate limits, alerting,
// and per-service proxies into the gateway's HTTP surface.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/alerting"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/circuitbreaker"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/metrics"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/middleware"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/proxy"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/ratelimit"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/registry"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

// Options holds the collaborators a Gateway is built from.
type Options struct {
	Registry   *registry.Registry
	Breakers   *circuitbreaker.Collection
	RateLimits *ratelimit.Manager
	Alerts     *alerting.Service
	Metrics    *metrics.Service

	// HealthPath is the upstream health endpoint exempt from rate
	// limiting (relative, e.g. "/health").
	HealthPath string

	Logger observability.Logger
}

// Gateway is the HTTP entry point: it routes operator endpoints itself
// and funnels everything else through the admission pipeline to the
// per-service upstream proxies.
type Gateway struct {
	registry   *registry.Registry
	breakers   *circuitbreaker.Collection
	rateLimits *ratelimit.Manager
	alerts     *alerting.Service
	metrics    *metrics.Service
	upstreams  map[string]*proxy.Upstream
	healthPath string
	logger     observability.Logger
}

// New creates a gateway. Upstreams are added with RegisterUpstream.
func New(opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	healthPath := opts.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}

	return &Gateway{
		registry:   opts.Registry,
		breakers:   opts.Breakers,
		rateLimits: opts.RateLimits,
		alerts:     opts.Alerts,
		metrics:    opts.Metrics,
		upstreams:  make(map[string]*proxy.Upstream),
		healthPath: healthPath,
		logger:     logger,
	}
}

// RegisterUpstream creates the reverse proxy for one service key.
func (g *Gateway) RegisterUpstream(key, baseURL string) error {
	key = registry.NormalizeKey(key)
	if key == "" {
		return util.ErrInvalidKey
	}

	up, err := proxy.NewUpstream(key, baseURL, proxy.WithLogger(g.logger))
	if err != nil {
		return err
	}
	g.upstreams[key] = up
	return nil
}

// Handler builds the full HTTP handler: operator endpoints plus the
// proxy fallback, wrapped in the middleware chain.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /gateway/metrics", g.handleMetrics)
	mux.HandleFunc("GET /gateway/summary", g.handleSummary)
	mux.HandleFunc("GET /gateway/alerts", g.handleAlerts)
	mux.HandleFunc("POST /gateway/alerts/{id}/ack", g.handleAlertAck)
	mux.HandleFunc("/", g.proxyHandler)

	var h http.Handler = mux
	h = middleware.AccessLog(g.logger)(h)
	h = middleware.ResponseTime()(h)
	h = middleware.RequestID()(h)
	h = middleware.Recovery(g.logger)(h)
	return h
}

// handleHealth reports the aggregated system health. The endpoint
// bypasses rate limiting so monitors keep working while the gateway is
// shedding load.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := g.registry.SystemHealth()

	status := http.StatusOK
	if health.OverallStatus == registry.StatusDown {
		status = http.StatusServiceUnavailable
	}
	util.WriteJSON(w, status, health)
}

func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, g.metrics.GetMetrics())
}

func (g *Gateway) handleSummary(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, g.metrics.GetSummary())
}

func (g *Gateway) handleAlerts(w http.ResponseWriter, r *http.Request) {
	includeAcked := r.URL.Query().Get("all") == "true"
	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"alerts":  g.alerts.Alerts(includeAcked),
	})
}

func (g *Gateway) handleAlertAck(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !g.alerts.Acknowledge(id) {
		util.WriteJSON(w, http.StatusNotFound, util.ErrorResponse{
			Success: false,
			Error:   "ALERT_NOT_FOUND",
		})
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// proxyHandler is the admission pipeline: resolve the service from the
// first path segment, rate limit, then run the upstream call under the
// service's circuit breaker and record the outcome.
func (g *Gateway) proxyHandler(w http.ResponseWriter, r *http.Request) {
	serviceKey := firstSegment(r.URL.Path)

	up, ok := g.upstreams[serviceKey]
	if !ok {
		util.WriteJSON(w, http.StatusNotFound, util.ErrorResponse{
			Success: false,
			Error:   "SERVICE_NOT_FOUND",
			Message: "no service registered for this path",
		})
		return
	}

	// Upstream health endpoints stay reachable under load shedding.
	if r.URL.Path != "/"+serviceKey+g.healthPath {
		if d := g.rateLimits.Check(r, serviceKey); !d.Allowed {
			retryAfter := d.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			util.WriteJSON(w, http.StatusTooManyRequests, util.ErrorResponse{
				Success:    false,
				Error:      "RATE_LIMIT_EXCEEDED",
				Service:    serviceKey,
				RetryAfter: retryAfter,
			})
			return
		}
	}

	breaker := g.breakers.Get(serviceKey)
	if breaker == nil {
		// No breaker configured: proxy straight through.
		g.forward(w, r, up, serviceKey)
		return
	}

	start := time.Now()
	rw := util.NewStatusCapturingResponseWriter(w)

	status, err := breaker.Execute(r.Context(), func(ctx context.Context) (int, error) {
		up.ServeHTTP(rw, r.WithContext(ctx))
		if rw.StatusCode >= 500 {
			return rw.StatusCode, util.NewUpstreamError(serviceKey, rw.StatusCode)
		}
		return rw.StatusCode, nil
	})

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		// Rejected before reaching upstream: nothing written yet, and the
		// rejection does not count toward service request metrics.
		util.WriteJSON(w, http.StatusServiceUnavailable, util.ErrorResponse{
			Success: false,
			Error:   "CIRCUIT_OPEN",
			Service: serviceKey,
			Message: "service temporarily unavailable",
		})
		return
	}

	elapsed := time.Since(start)
	success := err == nil && status < 500

	g.registry.RecordRequest(serviceKey, registry.RequestOutcome{
		Success:      success,
		ResponseTime: float64(elapsed.Microseconds()) / 1000,
	})
	g.metrics.RecordRequest(serviceKey, success, elapsed)
}

// forward proxies without breaker protection, still recording the
// outcome.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, up *proxy.Upstream, serviceKey string) {
	start := time.Now()
	rw := util.NewStatusCapturingResponseWriter(w)

	up.ServeHTTP(rw, r)

	elapsed := time.Since(start)
	success := rw.StatusCode < 500

	g.registry.RecordRequest(serviceKey, registry.RequestOutcome{
		Success:      success,
		ResponseTime: float64(elapsed.Microseconds()) / 1000,
	})
	g.metrics.RecordRequest(serviceKey, success, elapsed)
}

// firstSegment extracts the routing key from a request path.
func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return registry.NormalizeKey(path)
}
