package pipeline

import "errors"

var (
	// ErrNilCompleter is returned when a Pipeline is built without a completion client.
	ErrNilCompleter = errors.New("completer cannot be nil")

	// ErrNilSink is returned when a Pipeline is built without a write-back sink.
	ErrNilSink = errors.New("sink cannot be nil")

	// ErrNilLogger is returned when a Pipeline is built without a logger.
	ErrNilLogger = errors.New("logger cannot be nil")

	// ErrNoTasks is returned when no task kind is configured.
	ErrNoTasks = errors.New("at least one task must be configured")

	// ErrInvalidConfig is returned for out-of-range settings.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrWriteBack wraps failures of the write-back sink.
	ErrWriteBack = errors.New("write-back failed")
)
