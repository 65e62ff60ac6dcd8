package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	// ErrUnknownProvider indicates the requested backend is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidConfig indicates a setting has the wrong type or value.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrCLINotFound indicates the CLI binary was not found in PATH.
	ErrCLINotFound = errors.New("CLI binary not found")

	// ErrNoCompletion indicates a run ended without a terminal event.
	ErrNoCompletion = errors.New("run ended without completion")

	// ErrRunFailed indicates the agent reported a failed run.
	ErrRunFailed = errors.New("run failed")

	// ErrTimeout indicates the run timed out.
	ErrTimeout = errors.New("run timed out")

	// ErrRateLimited indicates the agent reported rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Error wraps provider errors with context.
type Error struct {
	Provider  string // Engine name ("droid")
	Op        string // Operation that failed ("run", "complete", "stream")
	Err       error  // Underlying error
	Retryable bool   // Whether the error is likely transient
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new provider error.
func NewError(provider, op string, err error, retryable bool) *Error {
	return &Error{
		Provider:  provider,
		Op:        op,
		Err:       err,
		Retryable: retryable,
	}
}

// ConfigError reports a recognized setting with the wrong value type.
// It wraps ErrInvalidConfig.
type ConfigError struct {
	Engine   string
	Key      string
	Expected string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config for %q; expected %s", e.Engine, e.Key, e.Expected)
}

// Unwrap returns ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// IsRetryable checks if an error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// IsConfigError checks if an error came from configuration validation.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
