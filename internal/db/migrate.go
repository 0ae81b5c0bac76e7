package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

// lockWaitTimeout bounds how long Migrate waits to acquire the advisory
// lock before giving up. Several taskctl processes can start against
// the same SQLite file concurrently (e.g. two agent sessions); only one
// should run goose at a time.
const lockWaitTimeout = 10 * time.Second

// Migrate applies pending migrations to sqlDB, serialized across
// processes by an on-disk advisory lock at lockPath (grounded on the
// flock.Flock idiom used elsewhere in the pack for single-writer
// coordination). lockPath is typically the database file path plus a
// ".lock" suffix.
func Migrate(ctx context.Context, sqlDB *sql.DB, lockPath string, logger *zap.Logger) error {
	fl := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, lockWaitTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire migration lock: timed out after %s", lockWaitTimeout)
	}
	defer fl.Unlock()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	before, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if err := goose.Up(sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if logger != nil {
		logger.Info("schema migrations applied",
			zap.Int64("from_version", before),
			zap.Int64("to_version", after),
		)
	}
	return nil
}

// SchemaVersion reports the current goose schema version, used by
// `taskctl migrate` to report the version it brought the schema to.
func SchemaVersion(sqlDB *sql.DB) (int64, error) {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(sqlDB)
}
