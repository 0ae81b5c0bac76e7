package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jwwelbor/shark-task-manager/internal/db"
)

// newTestStore spins up a fresh on-disk SQLite database, migrates it
// to the current schema, and returns a Store over it. A file-backed
// database (rather than :memory:) is used because goose's migration
// runner and the store's own connection each open the DSN separately;
// an in-memory database would give each one its own empty database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "store_test.db")

	driver := db.NewSQLiteDriver()
	require.NoError(t, driver.Connect(ctx, dbPath))
	t.Cleanup(func() { driver.Close() })

	sqlDB, err := driver.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, sqlDB, dbPath+".lock", zap.NewNop()))

	return New(driver, zap.NewNop())
}
