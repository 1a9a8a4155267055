// Package util provides shared helpers for the API gateway.
//
// # Error Conventions
//
// The project follows one error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrCircuitOpen.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError). Each type implements
//     Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// Errors raised on the instrumentation path (registry, limiter, alerting)
// must never surface to the proxied client response; only upstream call
// failures and admission rejections change user-visible behavior.
package util

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	// ErrInvalidKey indicates a malformed or empty service key.
	ErrInvalidKey = errors.New("invalid service key")

	// ErrServiceNotFound indicates the service key is not registered.
	ErrServiceNotFound = errors.New("service not found")

	// ErrCircuitOpen indicates the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRateLimited indicates the rate limiter rejected the request.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUpstreamTimeout indicates the upstream call exceeded its budget.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrUpstreamUnavailable indicates the upstream could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// UpstreamError represents a failed upstream call with the status the
// circuit breaker should account for.
type UpstreamError struct {
	Service    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream %s failed: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("upstream %s returned status %d", e.Service, e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *UpstreamError) Is(target error) bool {
	_, ok := target.(*UpstreamError)
	return ok || errors.Is(e.Cause, target)
}

// NewUpstreamError creates a new UpstreamError for a 5xx response.
func NewUpstreamError(service string, statusCode int) *UpstreamError {
	return &UpstreamError{Service: service, StatusCode: statusCode}
}
