package openai

import "errors"

// Error definitions for the openai package.
var (
	// ErrInvalidConfig is returned when the LLM configuration cannot be used.
	ErrInvalidConfig = errors.New("invalid openai configuration")

	// ErrUpstream is returned for non-2xx responses other than 429.
	ErrUpstream = errors.New("openai upstream error")
)
