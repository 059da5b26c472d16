// Package logger provides structured logging functionality for the tagger.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, and helpers to carry a scoped logger in a context.
package logger
