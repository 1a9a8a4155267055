package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/alerting"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/circuitbreaker"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/config"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/gateway"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/health"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/metrics"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/ratelimit"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/registry"
)

// rateLimitCleanupInterval is how often stale limiter windows are reaped.
const rateLimitCleanupInterval = 5 * time.Minute

// App wires the gateway components together and owns their lifecycle.
type App struct {
	cfg        *config.GatewayConfig
	configPath string
	logger     observability.Logger

	tracer     *observability.Tracer
	registry   *registry.Registry
	breakers   *circuitbreaker.Collection
	rateLimits *ratelimit.Manager
	alerts     *alerting.Service
	metrics    *metrics.Service
	prober     *health.Prober
	gateway    *gateway.Gateway
	server     *http.Server
	watcher    *config.Watcher
}

// NewApp builds the full component graph from configuration.
func NewApp(cfg *config.GatewayConfig, configPath string, logger observability.Logger) (*App, error) {
	a := &App{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, err
	}
	a.tracer = tracer

	a.registry = registry.New(
		registry.WithLogger(logger),
		registry.WithHealthLogSize(cfg.HealthCheck.LogSize),
	)

	keys := make([]string, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		key := registry.NormalizeKey(svc.Key)
		if _, err := a.registry.Register(key, registry.ServiceInfo{
			Name: svc.Name,
			URL:  svc.URL,
		}); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	a.alerts = alerting.New(alertConfigFrom(cfg), logger, alertChannelsFrom(cfg)...)

	a.breakers = circuitbreaker.NewCollection(keys, &circuitbreaker.Config{
		Timeout:                  cfg.CircuitBreaker.Timeout.Duration(),
		ErrorThresholdPercentage: cfg.CircuitBreaker.ErrorThresholdPercentage,
		ResetTimeout:             cfg.CircuitBreaker.ResetTimeout.Duration(),
		VolumeThreshold:          cfg.CircuitBreaker.VolumeThreshold,
		HalfOpenMax:              cfg.CircuitBreaker.HalfOpenMax,
		OnStateChange:            a.onBreakerStateChange,
	}, logger)

	a.rateLimits = ratelimit.NewManager(
		serviceLimitsFrom(cfg),
		cfg.RateLimit.Max,
		cfg.RateLimit.Window.Duration(),
		logger,
	)

	a.metrics = metrics.New(a.registry, a.breakers)

	a.gateway = gateway.New(gateway.Options{
		Registry:   a.registry,
		Breakers:   a.breakers,
		RateLimits: a.rateLimits,
		Alerts:     a.alerts,
		Metrics:    a.metrics,
		HealthPath: cfg.HealthCheck.Path,
		Logger:     logger,
	})
	for _, svc := range cfg.Services {
		if err := a.gateway.RegisterUpstream(svc.Key, svc.URL); err != nil {
			return nil, err
		}
	}

	a.prober = health.New(health.Config{
		Interval: cfg.HealthCheck.Interval.Duration(),
		Timeout:  cfg.HealthCheck.Timeout.Duration(),
		Path:     cfg.HealthCheck.Path,
	}, a.registry, a.alerts, logger)

	a.server = &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      a.gateway.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	if configPath != "" {
		a.watcher = config.NewWatcher(configPath, a.onConfigReload, logger)
	}

	return a, nil
}

// onBreakerStateChange mirrors breaker transitions into the registry and
// raises the critical alert when a circuit opens.
func (a *App) onBreakerStateChange(name string, from, to circuitbreaker.State) {
	a.registry.UpdateCircuitState(name, to.String())

	if to == circuitbreaker.StateOpen {
		a.alerts.CircuitOpened(name)
	}
}

// onConfigReload applies the hot-reloadable parts of a new configuration:
// rate limits and alerting thresholds. Service topology and breaker
// settings require a restart.
func (a *App) onConfigReload(cfg *config.GatewayConfig) {
	a.rateLimits.UpdateLimits(
		serviceLimitsFrom(cfg),
		cfg.RateLimit.Max,
		cfg.RateLimit.Window.Duration(),
	)
	a.alerts.UpdateConfig(alertConfigFrom(cfg))
}

// Run starts the background loops and the HTTP server, then blocks until
// ctx is cancelled and the server has drained.
func (a *App) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.prober.Run(bgCtx)
	a.rateLimits.StartCleanup(bgCtx, rateLimitCleanupInterval)

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			a.logger.Warn("config watcher disabled", observability.Error(err))
			a.watcher = nil
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("gateway listening",
			observability.String("address", a.server.Addr),
			observability.Int("services", len(a.cfg.Services)),
		)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	return a.shutdown()
}

// shutdown drains the server and stops the background components.
func (a *App) shutdown() error {
	a.logger.Info("shutting down")

	if a.watcher != nil {
		a.watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		a.cfg.Server.ShutdownTimeout.Duration(),
	)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)

	if terr := a.tracer.Shutdown(shutdownCtx); terr != nil {
		a.logger.Warn("tracer shutdown failed", observability.Error(terr))
	}
	_ = a.logger.Sync()

	return err
}

// alertConfigFrom maps the YAML alerting section to the service config.
func alertConfigFrom(cfg *config.GatewayConfig) alerting.Config {
	return alerting.Config{
		Cooldown:  cfg.Alerting.Cooldown.Duration(),
		MaxAlerts: cfg.Alerting.MaxAlerts,
		Thresholds: alerting.Thresholds{
			ConsecutiveFailures: cfg.Alerting.Thresholds.ConsecutiveFailures,
			ResponseTime:        cfg.Alerting.Thresholds.ResponseTime.Duration(),
			ErrorRatePercent:    cfg.Alerting.Thresholds.ErrorRatePercent,
		},
	}
}

// alertChannelsFrom builds the optional delivery channels.
func alertChannelsFrom(cfg *config.GatewayConfig) []alerting.Channel {
	var channels []alerting.Channel
	if cfg.Alerting.WebhookURL != "" {
		channels = append(channels, alerting.NewWebhookChannel(cfg.Alerting.WebhookURL))
	}
	return channels
}

// serviceLimitsFrom extracts the per-service rate limits.
func serviceLimitsFrom(cfg *config.GatewayConfig) []ratelimit.ServiceLimit {
	limits := make([]ratelimit.ServiceLimit, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		if svc.RateLimit == nil {
			continue
		}
		limits = append(limits, ratelimit.ServiceLimit{
			Key:    registry.NormalizeKey(svc.Key),
			Max:    svc.RateLimit.Max,
			Window: svc.RateLimit.Window.Duration(),
		})
	}
	return limits
}
