package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/registry"
)

// Thresholds holds the rule thresholds for health-driven alerts.
type Thresholds struct {
	// ConsecutiveFailures raises a warning at or above this count.
	ConsecutiveFailures int

	// ResponseTime raises a slow-response warning above this duration.
	ResponseTime time.Duration

	// ErrorRatePercent raises a warning above this lifetime error rate.
	ErrorRatePercent float64
}

// Config holds alerting service configuration.
type Config struct {
	// Cooldown is the minimum interval between duplicate alerts for the
	// same concern and service.
	Cooldown time.Duration

	// MaxAlerts bounds the in-memory alert log; oldest evicted first.
	MaxAlerts int

	Thresholds Thresholds
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Cooldown:  60 * time.Second,
		MaxAlerts: 100,
		Thresholds: Thresholds{
			ConsecutiveFailures: 3,
			ResponseTime:        5 * time.Second,
			ErrorRatePercent:    50,
		},
	}
}

// Channel delivers alerts to a destination. Delivery failures are the
// channel's problem to report; the alerting service never propagates
// them.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert *Alert) error
}

// Service applies threshold rules with per-concern cooldowns and fans
// dispatched alerts out to the configured channels.
type Service struct {
	logger observability.Logger

	mu       sync.Mutex
	cfg      Config
	alerts   []*Alert
	lastSent map[string]time.Time
	channels []Channel
}

// New creates an alerting service. The log channel is always attached;
// pass extra channels (webhook) as needed.
func New(cfg Config, logger observability.Logger, channels ...Channel) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = 100
	}

	all := append([]Channel{newLogChannel(logger)}, channels...)

	return &Service{
		logger:   logger,
		cfg:      cfg,
		lastSent: make(map[string]time.Time),
		channels: all,
	}
}

// ShouldAlert reports whether no alert with this key was dispatched
// within the cooldown. It does not mark the key; raise does that when
// the alert is actually created.
func (s *Service) ShouldAlert(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldAlertLocked(key)
}

func (s *Service) shouldAlertLocked(key string) bool {
	last, ok := s.lastSent[key]
	if !ok {
		return true
	}
	return time.Since(last) >= s.cfg.Cooldown
}

// EvaluateHealth applies the trigger rules to one health-check outcome.
// errorRate is the service's lifetime error percentage at evaluation
// time.
func (s *Service) EvaluateHealth(res *registry.HealthResult, errorRate float64) {
	if res == nil {
		return
	}
	svc := res.Service
	key := svc.Key

	if res.WentDown {
		s.raise("down:"+key, TypeServiceDown, SeverityCritical,
			fmt.Sprintf("service %s is down", key),
			map[string]interface{}{
				"service":             key,
				"consecutiveFailures": svc.ConsecutiveFailures,
			})
	}

	if res.Recovered {
		// Recovery re-arms the outage key so a future outage alerts
		// immediately, and is itself never throttled.
		s.mu.Lock()
		delete(s.lastSent, "down:"+key)
		s.mu.Unlock()

		s.raise("recovered:"+key, TypeServiceRecovered, SeverityInfo,
			fmt.Sprintf("service %s recovered", key),
			map[string]interface{}{"service": key})
	}

	t := s.thresholds()

	if !res.WentDown && t.ConsecutiveFailures > 0 &&
		svc.ConsecutiveFailures >= t.ConsecutiveFailures {
		s.raise("failures:"+key, TypeConsecutiveFailures, SeverityWarning,
			fmt.Sprintf("service %s failed %d consecutive checks", key, svc.ConsecutiveFailures),
			map[string]interface{}{
				"service":             key,
				"consecutiveFailures": svc.ConsecutiveFailures,
			})
	}

	if t.ResponseTime > 0 &&
		svc.Metrics.LastResponseTime > float64(t.ResponseTime.Milliseconds()) {
		s.raise("slow:"+key, TypeSlowResponse, SeverityWarning,
			fmt.Sprintf("service %s responded in %.0fms", key, svc.Metrics.LastResponseTime),
			map[string]interface{}{
				"service":        key,
				"responseTimeMs": svc.Metrics.LastResponseTime,
			})
	}

	if t.ErrorRatePercent > 0 && errorRate > t.ErrorRatePercent {
		s.raise("errorrate:"+key, TypeHighErrorRate, SeverityWarning,
			fmt.Sprintf("service %s error rate at %.1f%%", key, errorRate),
			map[string]interface{}{
				"service":   key,
				"errorRate": errorRate,
			})
	}
}

// CircuitOpened raises the critical alert for a breaker trip. Triggered
// directly by the breaker transition callback, not the health-check path.
func (s *Service) CircuitOpened(serviceKey string) {
	s.raise("circuit:"+serviceKey, TypeCircuitOpen, SeverityCritical,
		fmt.Sprintf("circuit breaker opened for service %s", serviceKey),
		map[string]interface{}{"service": serviceKey})
}

// raise creates and dispatches an alert unless the cooldown key is still
// hot. Dispatch is asynchronous; a slow channel never blocks the caller.
func (s *Service) raise(cooldownKey string, t Type, severity Severity, message string, data map[string]interface{}) {
	s.mu.Lock()
	if !s.shouldAlertLocked(cooldownKey) {
		s.mu.Unlock()
		return
	}
	s.lastSent[cooldownKey] = time.Now()

	alert := newAlert(t, severity, message, data)
	s.alerts = append(s.alerts, alert)
	if len(s.alerts) > s.cfg.MaxAlerts {
		s.alerts = s.alerts[len(s.alerts)-s.cfg.MaxAlerts:]
	}
	channels := s.channels
	s.mu.Unlock()

	recordAlert(string(t), string(severity))

	for _, ch := range channels {
		go func(ch Channel) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := ch.Send(ctx, alert); err != nil {
				s.logger.Warn("alert delivery failed",
					observability.String("channel", ch.Name()),
					observability.String("alert", alert.ID),
					observability.Error(err),
				)
			}
		}(ch)
	}
}

// Acknowledge marks an alert acknowledged. Returns false for unknown IDs.
func (s *Service) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id {
			if !a.Acknowledged {
				now := time.Now()
				a.Acknowledged = true
				a.AcknowledgedAt = &now
			}
			return true
		}
	}
	return false
}

// Alerts returns the alert log, newest first. Acknowledged alerts are
// excluded unless includeAcknowledged is set.
func (s *Service) Alerts(includeAcknowledged bool) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Alert, 0, len(s.alerts))
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if a.Acknowledged && !includeAcknowledged {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// UpdateConfig applies new cooldown, bound, and thresholds on reload.
func (s *Service) UpdateConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.Cooldown > 0 {
		s.cfg.Cooldown = cfg.Cooldown
	}
	if cfg.MaxAlerts > 0 {
		s.cfg.MaxAlerts = cfg.MaxAlerts
	}
	s.cfg.Thresholds = cfg.Thresholds
}

// thresholds returns a copy of the current thresholds.
func (s *Service) thresholds() Thresholds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Thresholds
}
