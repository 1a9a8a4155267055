package circuitbreaker

import (
	"sync"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
)

// Collection owns one breaker per service key. It is constructed once at
// startup from static configuration; nothing is materialized lazily
// mid-request, so there are no first-use races.
type Collection struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   *Config
	logger   observability.Logger
}

// NewCollection builds a breaker for every given service key.
func NewCollection(keys []string, config *Config, logger observability.Logger) *Collection {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	c := &Collection{
		breakers: make(map[string]*Breaker, len(keys)),
		config:   config,
		logger:   logger,
	}
	for _, key := range keys {
		c.breakers[key] = New(key, config, logger)
	}
	return c
}

// Get returns the breaker for a service key, or nil when the key is not
// configured.
func (c *Collection) Get(key string) *Breaker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.breakers[key]
}

// Keys returns the configured service keys.
func (c *Collection) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.breakers))
	for k := range c.breakers {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns a snapshot for every breaker.
func (c *Collection) Stats() map[string]Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make(map[string]Stats, len(c.breakers))
	for key, b := range c.breakers {
		stats[key] = b.Stats()
	}
	return stats
}

// ResetAll forces every breaker closed.
func (c *Collection) ResetAll() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, b := range c.breakers {
		b.Reset()
	}
	c.logger.Info("reset all circuit breakers")
}
