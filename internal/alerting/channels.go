package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
)

// logChannel writes every alert to the structured log. Always attached.
type logChannel struct {
	logger observability.Logger
}

func newLogChannel(logger observability.Logger) *logChannel {
	return &logChannel{logger: logger}
}

// Name implements Channel.
func (c *logChannel) Name() string { return "log" }

// Send implements Channel.
func (c *logChannel) Send(_ context.Context, alert *Alert) error {
	fields := []observability.Field{
		observability.String("alert", alert.ID),
		observability.String("type", string(alert.Type)),
		observability.String("message", alert.Message),
	}

	switch alert.Severity {
	case SeverityCritical:
		c.logger.Error("alert", fields...)
	case SeverityWarning:
		c.logger.Warn("alert", fields...)
	default:
		c.logger.Info("alert", fields...)
	}
	return nil
}

// webhookPayload is the outbound notification body.
type webhookPayload struct {
	Text  string `json:"text"`
	Alert *Alert `json:"alert"`
}

// WebhookChannel POSTs alerts to a configured endpoint, best-effort. A
// gobreaker circuit stops hammering a dead endpoint and a rate limiter
// keeps alert storms from flooding it; both kinds of rejection surface
// only as a logged delivery failure.
type WebhookChannel struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// webhook delivery limits.
const (
	webhookTimeout     = 5 * time.Second
	webhookRatePerSec  = 2
	webhookBurst       = 5
	webhookMaxFailures = 3
)

// NewWebhookChannel creates a webhook channel for the given URL.
func NewWebhookChannel(url string) *WebhookChannel {
	settings := gobreaker.Settings{
		Name:    "alert-webhook",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= webhookMaxFailures
		},
	}

	return &WebhookChannel{
		url:     url,
		client:  &http.Client{Timeout: webhookTimeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(webhookRatePerSec), webhookBurst),
	}
}

// Name implements Channel.
func (c *WebhookChannel) Name() string { return "webhook" }

// Send implements Channel.
func (c *WebhookChannel) Send(ctx context.Context, alert *Alert) error {
	if !c.limiter.Allow() {
		return fmt.Errorf("webhook dispatch rate exceeded, alert %s dropped", alert.ID)
	}

	body, err := json.Marshal(webhookPayload{
		Text:  fmt.Sprintf("[%s] %s", alert.Severity, alert.Message),
		Alert: alert,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
