package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration commands accepted by Migrate.
const (
	MigrateUp      = "up"
	MigrateDown    = "down"
	MigrateStatus  = "status"
	MigrateVersion = "version"
)

// ErrUnknownMigrateCommand is returned for a command Migrate does not support.
var ErrUnknownMigrateCommand = errors.New("unknown migration command")

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf forwards goose progress messages at info level.
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf forwards goose failures at error level. It does not exit; the
// error is returned to the caller instead.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrations returns the embedded migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// embed paths are fixed at compile time
		panic(err)
	}
	return sub
}

// CheckMigrateCommand reports whether Migrate supports command.
func CheckMigrateCommand(command string) error {
	switch command {
	case MigrateUp, MigrateDown, MigrateStatus, MigrateVersion:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMigrateCommand, command)
	}
}

// Migrate runs a goose migration command against the database behind pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, command string, logger *slog.Logger) error {
	if err := CheckMigrateCommand(command); err != nil {
		return err
	}

	log := logger.With("component", "migrations", "command", command)

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing migration connection", "error", err)
		}
	}()

	provider, err := goose.NewProvider(
		goose.DialectPostgres,
		db,
		Migrations(),
		goose.WithLogger(&slogGooseLogger{logger: log}),
	)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	switch command {
	case MigrateUp:
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		for _, r := range results {
			log.Info("applied migration",
				"version", r.Source.Version,
				"path", r.Source.Path,
				"duration_ms", r.Duration.Milliseconds())
		}
		if len(results) == 0 {
			log.Info("database is up to date")
		}
	case MigrateDown:
		result, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Info("rolled back migration",
			"version", result.Source.Version,
			"path", result.Source.Path)
	case MigrateStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, s := range statuses {
			log.Info("migration",
				"version", s.Source.Version,
				"path", s.Source.Path,
				"state", string(s.State),
				"applied_at", s.AppliedAt)
		}
	case MigrateVersion:
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		log.Info("current database version", "version", version)
	}

	return nil
}
