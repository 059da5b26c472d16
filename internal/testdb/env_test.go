//go:build integration

package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	t.Setenv(EnvTestDatabaseURL, "")
	t.Setenv(EnvDatabaseURL, "")
	assert.Empty(t, URL())
	assert.True(t, ShouldSkipDatabaseTest())

	t.Setenv(EnvDatabaseURL, "postgres://fallback/db")
	assert.Equal(t, "postgres://fallback/db", URL())

	t.Setenv(EnvTestDatabaseURL, "postgres://preferred/db")
	assert.Equal(t, "postgres://preferred/db", URL())
	assert.False(t, ShouldSkipDatabaseTest())
}
