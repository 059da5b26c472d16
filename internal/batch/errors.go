package batch

import "errors"

// Error definitions for the batch package.
var (
	// ErrInvalidBudget is returned when the prompt budget is not positive.
	ErrInvalidBudget = errors.New("prompt budget must be positive")

	// ErrNilRenderer is returned when no prompt renderer is supplied.
	ErrNilRenderer = errors.New("prompt renderer cannot be nil")

	// ErrInvalidTransition is returned when a window is moved to a state
	// that cannot follow its current one.
	ErrInvalidTransition = errors.New("invalid window state transition")
)
