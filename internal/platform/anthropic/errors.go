package anthropic

import "errors"

// ErrInvalidConfig is returned when the LLM configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid anthropic configuration")
