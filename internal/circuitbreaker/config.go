// Package circuitbreaker implements the per-service circuit breaker state
// machine that protects the gateway from cascading upstream failures.
package circuitbreaker

import "time"

// Config holds configuration for a circuit breaker.
type Config struct {
	// Timeout is the upstream call budget. A call exceeding it is
	// abandoned and classified as a failure.
	Timeout time.Duration

	// ErrorThresholdPercentage is the failure percentage (0-100) within
	// the volume window that trips the breaker.
	ErrorThresholdPercentage float64

	// ResetTimeout is the time spent open before a probe is allowed.
	ResetTimeout time.Duration

	// VolumeThreshold is the minimum number of calls in the window
	// before the error-rate rule can trip. Prevents tripping on a
	// handful of samples.
	VolumeThreshold int

	// HalfOpenMax is the number of probe calls admitted while half-open.
	HalfOpenMax int

	// OnStateChange is invoked after every state transition. Registered
	// once at construction; there is no global event bus.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Timeout:                  10 * time.Second,
		ErrorThresholdPercentage: 50,
		ResetTimeout:             30 * time.Second,
		VolumeThreshold:          5,
		HalfOpenMax:              1,
	}
}

// Validate coerces out-of-range values to defaults.
func (c *Config) Validate() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ErrorThresholdPercentage <= 0 || c.ErrorThresholdPercentage > 100 {
		c.ErrorThresholdPercentage = 50
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.VolumeThreshold < 1 {
		c.VolumeThreshold = 5
	}
	if c.HalfOpenMax < 1 {
		c.HalfOpenMax = 1
	}
}
