package completion

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service is a single text-completion backend.
//
// Submit sends prompt and returns the reply text verbatim. Implementations
// report throttling by returning a *RateLimitError (possibly wrapped); any
// other error is treated as opaque.
type Service interface {
	Submit(ctx context.Context, prompt string) (string, error)
}

// ServiceFunc adapts an ordinary function to the Service interface.
type ServiceFunc func(ctx context.Context, prompt string) (string, error)

// Submit implements Service.
func (f ServiceFunc) Submit(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Retry-after units understood by RetryHint.
const (
	UnitMilliseconds = "ms"
	UnitSeconds      = "s"
	UnitMinutes      = "m"
)

// RetryHint is a retry-after suggestion as reported by a service: a number
// plus a unit string.
type RetryHint struct {
	Value float64
	Unit  string
}

// Duration converts the hint to a time.Duration. It returns false when the
// unit is outside the supported set or the value is negative.
func (h RetryHint) Duration() (time.Duration, bool) {
	if h.Value < 0 {
		return 0, false
	}
	var unit time.Duration
	switch strings.ToLower(h.Unit) {
	case UnitMilliseconds:
		unit = time.Millisecond
	case UnitSeconds:
		unit = time.Second
	case UnitMinutes:
		unit = time.Minute
	default:
		return 0, false
	}
	return time.Duration(h.Value * float64(unit)), true
}

// String implements fmt.Stringer.
func (h RetryHint) String() string {
	return fmt.Sprintf("%g%s", h.Value, h.Unit)
}

// RateLimitError reports that the service throttled the request. Hint is nil
// when the service gave no parseable retry-after information.
type RateLimitError struct {
	Hint *RetryHint
	Err  error
}

// Error implements error.
func (e *RateLimitError) Error() string {
	msg := "rate limited"
	if e.Hint != nil {
		msg += " (retry after " + e.Hint.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying service error.
func (e *RateLimitError) Unwrap() error { return e.Err }

// NewRateLimitError builds a RateLimitError, extracting a retry hint from the
// error text when possible.
func NewRateLimitError(err error) *RateLimitError {
	rl := &RateLimitError{Err: err}
	if err != nil {
		if hint, ok := ParseRetryHint(err.Error()); ok {
			rl.Hint = &hint
		}
	}
	return rl
}
