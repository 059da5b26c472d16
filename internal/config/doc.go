// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, config files, .env files).
// It provides type-safe access to the settings needed by the tagging pipeline,
// its completion providers and its card stores while keeping configuration
// details separate from the pipeline logic.
package config
