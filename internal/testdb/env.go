//go:build integration

package testdb

import "os"

// Database URL environment variables, in order of preference.
const (
	EnvTestDatabaseURL = "TAGGER_TEST_DATABASE_URL"
	EnvDatabaseURL     = "DATABASE_URL"
)

// URL returns the first non-empty database URL from the environment, or ""
// when none is set.
func URL() string {
	for _, name := range []string{EnvTestDatabaseURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether no database is configured.
func ShouldSkipDatabaseTest() bool {
	return URL() == ""
}
