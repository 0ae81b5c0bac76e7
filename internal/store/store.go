package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/jwwelbor/shark-task-manager/internal/db"
)

// Store is the concrete entity store. It holds a db.Database handle
// (sqlite today; the interface leaves room for another backend per
// internal/db's registry) and implements every store-facing interface
// the other components narrow down to: statusvalidator.PrerequisiteStore,
// verification.SectionFinder, cascade.Store.
type Store struct {
	db     db.Database
	logger *zap.Logger
}

// New builds a Store over an already-connected database handle.
func New(database db.Database, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: database, logger: logger.With(zap.String("component", "store"))}
}

// querier is the read/write subset both db.Database and db.Tx satisfy,
// letting every query helper run identically inside or outside a
// transaction.
type querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) db.Row
	Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error)
}
