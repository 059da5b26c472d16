package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the LLM configuration cannot be used.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrContentBlocked is returned when the response was stopped by safety filters.
	ErrContentBlocked = errors.New("content blocked by safety filters")
)
