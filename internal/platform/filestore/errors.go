package filestore

import "errors"

var (
	// ErrInvalidDeckFile is returned when the deck file cannot be parsed or
	// holds an invalid card.
	ErrInvalidDeckFile = errors.New("invalid deck file")

	// ErrEmptyPath is returned when no deck file path is configured.
	ErrEmptyPath = errors.New("deck file path cannot be empty")
)
