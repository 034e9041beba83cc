package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-stream/src/logger"
)

// -----------------------------------------------------------------------------
// Sentinel errors
// -----------------------------------------------------------------------------

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrNoWallet         = errors.New("no wallet configured")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrUnknownPeriod    = errors.New("unknown period")
	ErrChannelClosed    = errors.New("channel closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type StreamError struct {
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ StreamError }
type NetworkError struct{ StreamError }
type DataSourceError struct{ StreamError }
type DatabaseError struct{ StreamError }
type ValidationError struct{ StreamError }

// BusinessRuleError is a rejection whose message is safe to show the client.
type BusinessRuleError struct{ StreamError }

// -----------------------------------------------------------------------------

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{StreamError{Message: message, Cause: cause}}
}

func NewNetworkError(message string, cause error) error {
	return &NetworkError{StreamError{Message: message, Cause: cause}}
}

func NewDataSourceError(message string, cause error) error {
	return &DataSourceError{StreamError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{StreamError{Message: message, Cause: cause}}
}

func NewValidationError(message string) error {
	return &ValidationError{StreamError{Message: message}}
}

func NewBusinessRuleError(message string) error {
	return &BusinessRuleError{StreamError{Message: message}}
}

// -----------------------------------------------------------------------------

// IsBusinessRule reports whether err (or anything it wraps) is a rule rejection.
func IsBusinessRule(err error) bool {
	var br *BusinessRuleError
	return errors.As(err, &br)
}

// IsValidation reports whether err is a client input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries times, doubling baseDelay between
// attempts. It stops early when ctx is done.
func RetryWithBackoff[T any](ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
