// Package errhandling provides error types, classification, and retry
// utilities for the dashboard engine. The taxonomy is closed: every failure
// surfaced by a pipeline maps to one of the sentinel errors below, and
// classification determines whether a source fetch may be retried.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Sentinel errors forming the engine's failure taxonomy.
var (
	// ErrSourceUnavailable is returned when a table location cannot be
	// fetched and no usable cache entry exists. Fatal for the affected
	// pipeline's first computation; later computations degrade to the
	// last-known-good cached dataset when one exists.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch is returned when fetched data is not rectangular or
	// a configured filter references a field absent from the table. Fatal,
	// surfaced to the target as a configuration error.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnresolvedParameter is returned when a param filter's reference is
	// not yet live. Non-fatal: callers treat it as pass-through.
	ErrUnresolvedParameter = errors.New("unresolved parameter")

	// ErrTransform is returned on a type or shape mismatch inside a
	// transform. Fatal for the current computation, not retried.
	ErrTransform = errors.New("transform error")
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryNetwork represents network-related errors (timeout,
	// connection refused, DNS). Typically transient and retryable.
	CategoryNetwork ErrorCategory = "network"

	// CategoryConfig represents configuration errors (schema mismatch,
	// unknown table, bad filter reference). Never retryable.
	CategoryConfig ErrorCategory = "config"

	// CategoryRateLimit represents rate limiting responses (429).
	// Transient; retried with backoff.
	CategoryRateLimit ErrorCategory = "rate_limit"

	// CategoryServer represents server errors (5xx). Typically transient.
	CategoryServer ErrorCategory = "server"

	// CategoryData represents data errors raised while applying filters or
	// transforms. Never retryable.
	CategoryData ErrorCategory = "data"

	// CategoryUnknown represents unclassified errors. Retryable by default,
	// transient causes being more likely than permanent ones.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Retryable indicates whether the error is transient and can be retried.
	Retryable bool

	// StatusCode is the HTTP status code (0 if not an HTTP error).
	StatusCode int

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyHTTPStatus classifies an HTTP response status from a REST source.
//
// Classification rules:
//   - 429: rate limit (retryable)
//   - 5xx: server error (retryable)
//   - other 4xx: config error (not retryable)
//   - anything else: unknown (retryable by default)
func ClassifyHTTPStatus(statusCode int, message string) *ClassifiedError {
	switch {
	case statusCode == 429:
		return &ClassifiedError{
			Category:   CategoryRateLimit,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "rate limited",
		}
	case statusCode >= 500:
		return &ClassifiedError{
			Category:   CategoryServer,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "server error",
		}
	case statusCode >= 400:
		return &ClassifiedError{
			Category:   CategoryConfig,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    "client error",
		}
	default:
		return &ClassifiedError{
			Category:   CategoryUnknown,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    message,
		}
	}
}

// ClassifyError classifies an arbitrary error from a source fetch or a
// pipeline stage. Engine sentinel errors map to non-retryable categories;
// network failures are retryable.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Category: CategoryUnknown, Retryable: false, Message: "nil error"}
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, ErrSchemaMismatch), errors.Is(err, ErrUnresolvedParameter):
		return &ClassifiedError{
			Category: CategoryConfig, Retryable: false,
			Message: err.Error(), OriginalErr: err,
		}
	case errors.Is(err, ErrTransform):
		return &ClassifiedError{
			Category: CategoryData, Retryable: false,
			Message: err.Error(), OriginalErr: err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &ClassifiedError{
			Category: CategoryNetwork, Retryable: true,
			Message: "request timeout", OriginalErr: err,
		}
	case errors.Is(err, context.Canceled):
		// User initiated, never retried.
		return &ClassifiedError{
			Category: CategoryNetwork, Retryable: false,
			Message: "context canceled", OriginalErr: err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ClassifiedError{
			Category: CategoryNetwork, Retryable: true,
			Message:     fmt.Sprintf("network error: %s %s", opErr.Op, opErr.Net),
			OriginalErr: err,
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ClassifiedError{
			Category: CategoryNetwork, Retryable: true,
			Message:     fmt.Sprintf("DNS error: %s", dnsErr.Name),
			OriginalErr: err,
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &ClassifiedError{
			Category: CategoryNetwork, Retryable: true,
			Message:     fmt.Sprintf("URL error: %s %s", urlErr.Op, urlErr.URL),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category: CategoryUnknown, Retryable: true,
		Message: err.Error(), OriginalErr: err,
	}
}

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool {
	return ClassifyError(err).Retryable
}
