package completion

import "errors"

// Common errors returned by the completion package
var (
	// ErrServiceFailure wraps any non-throttling failure reported by a service.
	ErrServiceFailure = errors.New("completion service failure")

	// ErrCancelled is returned when the context ends while waiting to retry.
	ErrCancelled = errors.New("completion cancelled")

	// ErrEmptyPrompt is returned when Complete is called without prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrNilService is returned when a Client is built without a Service.
	ErrNilService = errors.New("completion service cannot be nil")

	// ErrNilLogger is returned when a Client is built without a logger.
	ErrNilLogger = errors.New("logger cannot be nil")

	// ErrEmptyReply is returned by adapters when a service answers without text.
	ErrEmptyReply = errors.New("completion service returned no text")
)
