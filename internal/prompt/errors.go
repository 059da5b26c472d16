package prompt

import "errors"

// Error definitions for the prompt package.
var (
	// ErrNoCards is returned when a prompt is rendered for an empty window.
	ErrNoCards = errors.New("cannot render a prompt without cards")

	// ErrInvalidTemplate is returned when a template cannot be read or parsed.
	ErrInvalidTemplate = errors.New("invalid prompt template")
)
