package types

import (
	"fmt"
	"strings"
)

// ValidationError is a client-correctable problem with the request. Mapped to
// HTTP 400 by the handler.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// ConfigurationError signals missing operator configuration (provider
// credentials). Mapped to HTTP 500, distinct from client validation errors.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
}

// UpstreamError wraps any failure from an external provider, including
// timeouts and malformed payloads. The cause is logged server-side and never
// echoed to the caller.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s call failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
