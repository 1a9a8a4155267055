package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

// ValidateConfig checks the configuration for errors that would make the
// gateway misbehave at runtime. It must be called after ApplyDefaults.
func ValidateConfig(c *GatewayConfig) error {
	if len(c.Services) == 0 {
		return util.NewConfigError("services", "at least one service must be configured")
	}

	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		field := fmt.Sprintf("services[%d]", i)

		key := strings.ToLower(strings.TrimSpace(svc.Key))
		if key == "" {
			return util.NewConfigError(field+".key", "service key must not be empty")
		}
		if strings.ContainsAny(key, "/ \t") {
			return util.NewConfigError(field+".key", "service key must not contain slashes or whitespace")
		}
		if seen[key] {
			return util.NewConfigError(field+".key", "duplicate service key "+key)
		}
		seen[key] = true

		if svc.URL == "" {
			return util.NewConfigError(field+".url", "service url must not be empty")
		}
		u, err := url.Parse(svc.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return util.NewConfigError(field+".url", "service url must be an absolute http(s) URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return util.NewConfigError(field+".url", "unsupported scheme "+u.Scheme)
		}

		if svc.RateLimit != nil {
			if svc.RateLimit.Max < 0 {
				return util.NewConfigError(field+".rateLimit.max", "max must not be negative")
			}
			if svc.RateLimit.Window < 0 {
				return util.NewConfigError(field+".rateLimit.window", "window must not be negative")
			}
		}
	}

	cb := c.CircuitBreaker
	if cb.ErrorThresholdPercentage < 0 || cb.ErrorThresholdPercentage > 100 {
		return util.NewConfigError("circuitBreaker.errorThresholdPercentage",
			"must be between 0 and 100")
	}
	if cb.VolumeThreshold < 1 {
		return util.NewConfigError("circuitBreaker.volumeThreshold", "must be at least 1")
	}
	if cb.Timeout <= 0 {
		return util.NewConfigError("circuitBreaker.timeout", "must be positive")
	}
	if cb.ResetTimeout <= 0 {
		return util.NewConfigError("circuitBreaker.resetTimeout", "must be positive")
	}
	if cb.HalfOpenMax < 1 {
		return util.NewConfigError("circuitBreaker.halfOpenMax", "must be at least 1")
	}

	if c.Alerting.Thresholds.ErrorRatePercent < 0 || c.Alerting.Thresholds.ErrorRatePercent > 100 {
		return util.NewConfigError("alerting.thresholds.errorRatePercent",
			"must be between 0 and 100")
	}
	if c.Alerting.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.Alerting.WebhookURL); err != nil {
			return util.NewConfigErrorWithCause("alerting.webhookUrl", "invalid URL", err)
		}
	}

	if c.HealthCheck.Interval <= 0 {
		return util.NewConfigError("healthCheck.interval", "must be positive")
	}
	if c.HealthCheck.Timeout <= 0 {
		return util.NewConfigError("healthCheck.timeout", "must be positive")
	}
	if !strings.HasPrefix(c.HealthCheck.Path, "/") {
		return util.NewConfigError("healthCheck.path", "must start with /")
	}

	return nil
}
