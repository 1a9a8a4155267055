package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *GatewayConfig {
	t.Helper()

	cfg, err := LoadConfigFromReader(strings.NewReader(`
services:
  - key: books
    name: Books
    url: http://localhost:8082
`))
	require.NoError(t, err)
	return cfg
}

func TestValidateConfigOK(t *testing.T) {
	assert.NoError(t, ValidateConfig(validConfig(t)))
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GatewayConfig)
	}{
		{
			name:   "no services",
			mutate: func(c *GatewayConfig) { c.Services = nil },
		},
		{
			name:   "empty key",
			mutate: func(c *GatewayConfig) { c.Services[0].Key = "  " },
		},
		{
			name:   "key with slash",
			mutate: func(c *GatewayConfig) { c.Services[0].Key = "books/v1" },
		},
		{
			name: "duplicate key after normalization",
			mutate: func(c *GatewayConfig) {
				c.Services = append(c.Services, ServiceConfig{
					Key: " BOOKS ", Name: "Dup", URL: "http://localhost:9000",
				})
			},
		},
		{
			name:   "missing url",
			mutate: func(c *GatewayConfig) { c.Services[0].URL = "" },
		},
		{
			name:   "relative url",
			mutate: func(c *GatewayConfig) { c.Services[0].URL = "/books" },
		},
		{
			name:   "unsupported scheme",
			mutate: func(c *GatewayConfig) { c.Services[0].URL = "ftp://host" },
		},
		{
			name:   "negative service rate limit",
			mutate: func(c *GatewayConfig) { c.Services[0].RateLimit.Max = -1 },
		},
		{
			name:   "error threshold over 100",
			mutate: func(c *GatewayConfig) { c.CircuitBreaker.ErrorThresholdPercentage = 150 },
		},
		{
			name:   "volume threshold zero",
			mutate: func(c *GatewayConfig) { c.CircuitBreaker.VolumeThreshold = 0 },
		},
		{
			name:   "negative breaker timeout",
			mutate: func(c *GatewayConfig) { c.CircuitBreaker.Timeout = -1 },
		},
		{
			name:   "half open max zero",
			mutate: func(c *GatewayConfig) { c.CircuitBreaker.HalfOpenMax = 0 },
		},
		{
			name:   "alert error rate over 100",
			mutate: func(c *GatewayConfig) { c.Alerting.Thresholds.ErrorRatePercent = 101 },
		},
		{
			name:   "webhook url invalid",
			mutate: func(c *GatewayConfig) { c.Alerting.WebhookURL = "::::" },
		},
		{
			name:   "health path without slash",
			mutate: func(c *GatewayConfig) { c.HealthCheck.Path = "health" },
		},
		{
			name:   "probe interval zero",
			mutate: func(c *GatewayConfig) { c.HealthCheck.Interval = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}
