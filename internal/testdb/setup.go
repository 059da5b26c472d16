//go:build integration

package testdb

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/scry-tagger/internal/config"
	"github.com/phrazzld/scry-tagger/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds connection setup and schema migration.
const TestTimeout = 30 * time.Second

// Pool connects to the test database and migrates it to the latest schema.
// The test is skipped when no database URL is configured. The pool is
// closed when the test ends.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if ShouldSkipDatabaseTest() {
		t.Skipf("no test database: set %s", EnvTestDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, config.DatabaseConfig{URL: URL(), MaxConns: 4})
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, postgres.Migrate(ctx, pool, postgres.MigrateUp, logger),
		"failed to migrate test database")

	return pool
}
