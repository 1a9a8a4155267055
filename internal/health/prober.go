// Package health probes the configured upstream services on an interval
// and feeds the outcomes into the registry and alerting.
package health

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/alerting"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/registry"
)

// Config holds prober settings.
type Config struct {
	// Interval between probe rounds.
	Interval time.Duration

	// Timeout for each individual probe.
	Timeout time.Duration

	// Path appended to the service base URL.
	Path string
}

// Prober performs periodic HTTP health checks against every registered
// service.
type Prober struct {
	cfg      Config
	registry *registry.Registry
	alerts   *alerting.Service
	client   *http.Client
	logger   observability.Logger
}

// New creates a prober. The alerting service may be nil; probe outcomes
// then only update the registry.
func New(cfg Config, reg *registry.Registry, alerts *alerting.Service, logger observability.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Path == "" {
		cfg.Path = "/health"
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Prober{
		cfg:      cfg,
		registry: reg,
		alerts:   alerts,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// Run probes all services on the configured interval until ctx is
// cancelled. The first round runs immediately.
func (p *Prober) Run(ctx context.Context) {
	p.ProbeAll(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ProbeAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProbeAll checks every registered service concurrently and waits for
// the round to finish.
func (p *Prober) ProbeAll(ctx context.Context) {
	keys := p.registry.Keys()

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			p.Probe(ctx, key)
		}(key)
	}
	wg.Wait()
}

// Probe checks one service and applies the outcome. A probe for a key
// that disappeared from the registry is a no-op.
func (p *Prober) Probe(ctx context.Context, key string) {
	rec, ok := p.registry.Get(key)
	if !ok {
		return
	}

	update := p.check(ctx, rec.URL)

	res := p.registry.UpdateHealth(key, update)
	if res == nil {
		return
	}

	if p.alerts != nil {
		p.alerts.EvaluateHealth(res, res.Service.Metrics.ErrorRate())
	}
}

// check performs the HTTP probe and classifies the outcome: transport
// errors and 5xx mean down, 4xx means degraded (reachable but
// misbehaving), anything else is operational.
func (p *Prober) check(ctx context.Context, baseURL string) registry.HealthUpdate {
	url := strings.TrimSuffix(baseURL, "/") + p.cfg.Path

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return registry.HealthUpdate{
			Status: string(registry.StatusDown),
			Error:  err.Error(),
		}
	}

	resp, err := p.client.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		return registry.HealthUpdate{
			Status:       string(registry.StatusDown),
			ResponseTime: elapsed,
			Error:        err.Error(),
		}
	}
	defer resp.Body.Close()

	status := registry.StatusOperational
	switch {
	case resp.StatusCode >= 500:
		status = registry.StatusDown
	case resp.StatusCode >= 400:
		status = registry.StatusDegraded
	}

	return registry.HealthUpdate{
		Status:       string(status),
		HTTPStatus:   resp.StatusCode,
		ResponseTime: elapsed,
	}
}
