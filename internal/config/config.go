// Package config defines the gateway configuration model and loading.
package config

import (
	"time"
)

// GatewayConfig is the root configuration for the gateway.
type GatewayConfig struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Services       []ServiceConfig      `yaml:"services"`
	RateLimit      RateLimitConfig      `yaml:"rateLimit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
	HealthCheck    HealthCheckConfig    `yaml:"healthCheck"`
	Alerting       AlertingConfig       `yaml:"alerting"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	ListenAddress   string   `yaml:"listenAddress"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// ServiceConfig describes one backend service behind the gateway.
type ServiceConfig struct {
	// Key is the unique lowercase identifier, also the routing prefix.
	Key string `yaml:"key"`

	// Name is the human-readable display name.
	Name string `yaml:"name"`

	// URL is the upstream base address.
	URL string `yaml:"url"`

	// RateLimit overrides the per-service rate limit for this service.
	RateLimit *RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig holds a fixed-window rate limit.
type RateLimitConfig struct {
	// Window is the fixed window duration.
	Window Duration `yaml:"window"`

	// Max is the number of requests allowed per window.
	Max int `yaml:"max"`
}

// CircuitBreakerConfig holds the per-service circuit breaker settings,
// applied uniformly to every service breaker.
type CircuitBreakerConfig struct {
	// Timeout is the upstream call budget; calls exceeding it fail.
	Timeout Duration `yaml:"timeout"`

	// ErrorThresholdPercentage is the failure percentage that trips the
	// breaker once the volume threshold is met.
	ErrorThresholdPercentage float64 `yaml:"errorThresholdPercentage"`

	// ResetTimeout is the time spent open before probing.
	ResetTimeout Duration `yaml:"resetTimeout"`

	// VolumeThreshold is the minimum call count in the window before the
	// error-rate rule can trip the breaker.
	VolumeThreshold int `yaml:"volumeThreshold"`

	// HalfOpenMax is the number of probe calls allowed while half-open.
	HalfOpenMax int `yaml:"halfOpenMax"`
}

// HealthCheckConfig holds upstream health probe settings.
type HealthCheckConfig struct {
	// Interval between probe rounds.
	Interval Duration `yaml:"interval"`

	// Timeout for each individual probe.
	Timeout Duration `yaml:"timeout"`

	// Path appended to the service base URL, e.g. "/health".
	Path string `yaml:"path"`

	// LogSize bounds the per-service health log ring buffer.
	LogSize int `yaml:"logSize"`
}

// AlertingConfig holds alert dispatch settings.
type AlertingConfig struct {
	// Cooldown is the minimum interval between duplicate alerts for the
	// same concern and service.
	Cooldown Duration `yaml:"cooldown"`

	// MaxAlerts bounds the in-memory alert log.
	MaxAlerts int `yaml:"maxAlerts"`

	// WebhookURL is the optional outbound notification endpoint.
	WebhookURL string `yaml:"webhookUrl"`

	Thresholds AlertThresholds `yaml:"thresholds"`
}

// AlertThresholds holds the rule thresholds for health-driven alerts.
type AlertThresholds struct {
	// ConsecutiveFailures triggers a warning at or above this count.
	ConsecutiveFailures int `yaml:"consecutiveFailures"`

	// ResponseTime triggers a slow-response warning above this duration.
	ResponseTime Duration `yaml:"responseTime"`

	// ErrorRatePercent triggers a warning above this lifetime error rate.
	ErrorRatePercent float64 `yaml:"errorRatePercent"`
}

// Default configuration values.
const (
	DefaultListenAddress   = ":8080"
	DefaultLogSize         = 100
	DefaultMaxAlerts       = 100
	DefaultVolumeThreshold = 5
	DefaultHalfOpenMax     = 1
)

// Default durations and thresholds.
var (
	DefaultBreakerTimeout      = 10 * time.Second
	DefaultResetTimeout        = 30 * time.Second
	DefaultErrorThreshold      = 50.0
	DefaultProbeInterval       = 30 * time.Second
	DefaultProbeTimeout        = 5 * time.Second
	DefaultProbePath           = "/health"
	DefaultAlertCooldown       = 60 * time.Second
	DefaultRateLimitWindow     = time.Minute
	DefaultRateLimitMax        = 100
	DefaultGlobalRateLimitMax  = 1000
	DefaultConsecutiveFailures = 3
	DefaultSlowResponse        = 5 * time.Second
	DefaultErrorRatePercent    = 50.0
)

// ApplyDefaults fills zero values with defaults. It is called after
// loading and before validation.
func (c *GatewayConfig) ApplyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = DefaultListenAddress
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "gateway"
	}

	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = Duration(DefaultRateLimitWindow)
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = DefaultGlobalRateLimitMax
	}

	if c.CircuitBreaker.Timeout == 0 {
		c.CircuitBreaker.Timeout = Duration(DefaultBreakerTimeout)
	}
	if c.CircuitBreaker.ErrorThresholdPercentage == 0 {
		c.CircuitBreaker.ErrorThresholdPercentage = DefaultErrorThreshold
	}
	if c.CircuitBreaker.ResetTimeout == 0 {
		c.CircuitBreaker.ResetTimeout = Duration(DefaultResetTimeout)
	}
	if c.CircuitBreaker.VolumeThreshold == 0 {
		c.CircuitBreaker.VolumeThreshold = DefaultVolumeThreshold
	}
	if c.CircuitBreaker.HalfOpenMax == 0 {
		c.CircuitBreaker.HalfOpenMax = DefaultHalfOpenMax
	}

	if c.HealthCheck.Interval == 0 {
		c.HealthCheck.Interval = Duration(DefaultProbeInterval)
	}
	if c.HealthCheck.Timeout == 0 {
		c.HealthCheck.Timeout = Duration(DefaultProbeTimeout)
	}
	if c.HealthCheck.Path == "" {
		c.HealthCheck.Path = DefaultProbePath
	}
	if c.HealthCheck.LogSize == 0 {
		c.HealthCheck.LogSize = DefaultLogSize
	}

	if c.Alerting.Cooldown == 0 {
		c.Alerting.Cooldown = Duration(DefaultAlertCooldown)
	}
	if c.Alerting.MaxAlerts == 0 {
		c.Alerting.MaxAlerts = DefaultMaxAlerts
	}
	if c.Alerting.Thresholds.ConsecutiveFailures == 0 {
		c.Alerting.Thresholds.ConsecutiveFailures = DefaultConsecutiveFailures
	}
	if c.Alerting.Thresholds.ResponseTime == 0 {
		c.Alerting.Thresholds.ResponseTime = Duration(DefaultSlowResponse)
	}
	if c.Alerting.Thresholds.ErrorRatePercent == 0 {
		c.Alerting.Thresholds.ErrorRatePercent = DefaultErrorRatePercent
	}

	for i := range c.Services {
		if c.Services[i].RateLimit == nil {
			c.Services[i].RateLimit = &RateLimitConfig{
				Window: Duration(DefaultRateLimitWindow),
				Max:    DefaultRateLimitMax,
			}
			continue
		}
		if c.Services[i].RateLimit.Window == 0 {
			c.Services[i].RateLimit.Window = Duration(DefaultRateLimitWindow)
		}
		if c.Services[i].RateLimit.Max == 0 {
			c.Services[i].RateLimit.Max = DefaultRateLimitMax
		}
	}
}
