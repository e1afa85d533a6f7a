package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by adapters and the core
var (
	// ErrProviderTransport signals a network/auth failure; retried with bounded backoff
	ErrProviderTransport = errors.New("provider transport error")
	// ErrProviderSchema signals non-conformant structured output; never retried
	ErrProviderSchema = errors.New("provider schema error")
	// ErrNotFound signals no search results or no parcel match
	ErrNotFound = errors.New("not found")
	// ErrAmbiguousAddress signals several parcel candidates for one address
	ErrAmbiguousAddress = errors.New("ambiguous address")
	// ErrAmbiguousParcel signals several owner records for one parcel
	ErrAmbiguousParcel = errors.New("ambiguous parcel")
	// ErrInvalidSubject signals a subject without name or address
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrRunFailed signals that every evidence source failed
	ErrRunFailed = errors.New("verification run failed")
)

// ProviderError carries the provider and operation behind a failure
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a retryable transport failure
func NewTransportError(provider, op string, status int, err error) error {
	return &ProviderError{
		Provider:   provider,
		Op:         op,
		StatusCode: status,
		Err:        fmt.Errorf("%w: %w", ErrProviderTransport, err),
	}
}

// NewSchemaError wraps err as a non-retryable schema failure
func NewSchemaError(provider, op string, err error) error {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Err:      fmt.Errorf("%w: %w", ErrProviderSchema, err),
	}
}

// IsRetryable reports whether err is worth another attempt.
// Cancellation and deadline errors are terminal for the caller's context, and
// client errors (auth, bad request) will not change on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if !errors.Is(err, ErrProviderTransport) {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode < 500 {
		return pe.StatusCode == 408 || pe.StatusCode == 429
	}
	return true
}

// RunError is returned to callers when a verification run cannot produce a verdict
type RunError struct {
	Success   bool      `json:"success"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

// NewRunError builds the caller-facing failure for err
func NewRunError(err error) *RunError {
	return &RunError{
		Success:   false,
		Status:    "error",
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

func (e *RunError) Error() string { return e.Message }

func (e *RunError) Unwrap() error { return e.Err }
