package core

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by ModelSession.Handle before a successful
// Initialize or after Reset.
var ErrNotInitialized = errors.New("model session not initialized")

// ConfigError reports an invalid or incomplete configuration: an unsupported
// provider id, a missing required credential field, or a model id that cannot
// be resolved. It is surfaced to the UI as a configError/error envelope and
// never crashes the session.
type ConfigError struct {
	Field   string // offending field, if attributable ("provider", "apiKey", "modelId")
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
	}
	return "configuration error: " + e.Message
}

// NewConfigError builds a ConfigError for a specific field.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProviderError reports a vendor SDK construction or discovery failure,
// rewrapped at the adapter boundary with an actionable message.
type ProviderError struct {
	Provider string
	Op       string // "construct", "list_models", "validate"
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %s: %v", e.Provider, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s: %s: %s", e.Provider, e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError wrapping a vendor failure.
func NewProviderError(provider, op, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Message: message, Err: err}
}

// StreamError reports a failure during stream setup or iteration (network,
// revoked auth, rate limit). The request is considered failed, not retried.
type StreamError struct {
	Message string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stream error: %s: %v", e.Message, e.Err)
	}
	return "stream error: " + e.Message
}

func (e *StreamError) Unwrap() error { return e.Err }
