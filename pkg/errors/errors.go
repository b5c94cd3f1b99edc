package errors

import (
	"errors"
	"fmt"
)

// Generic errors shared across the service

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a missing or invalid ingest secret
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrRateLimitExceeded indicates an upstream provider rate limit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Pipeline errors. All of these are recoverable-by-retry: orchestrators count
// them per item and leave the item eligible for a future pass.

var (
	// ErrInsufficientData indicates a candle window with fewer than the
	// minimum number of candles required for reaction computation
	ErrInsufficientData = errors.New("insufficient candle data")

	// ErrMissingEventCandle indicates no candle near the event timestamp
	// within tolerance
	ErrMissingEventCandle = errors.New("missing event candle")

	// ErrNoSpikeCandles indicates an empty spike window
	ErrNoSpikeCandles = errors.New("no candles in spike window")

	// ErrInsufficientSampleSize indicates too few reactions to aggregate
	ErrInsufficientSampleSize = errors.New("insufficient sample size")

	// ErrProviderUnavailable indicates the upstream candle provider failed
	ErrProviderUnavailable = errors.New("candle provider unavailable")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
