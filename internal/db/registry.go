package db

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

var (
	// drivers stores registered database driver factories
	drivers = make(map[string]DriverFactory)
	// mu protects concurrent access to drivers map
	mu sync.RWMutex
)

// DriverFactory is a function that creates a new Database instance
type DriverFactory func() Database

// RegisterDriver registers a database driver with the given name.
// Called from each driver's init() function.
func RegisterDriver(name string, factory DriverFactory) {
	mu.Lock()
	defer mu.Unlock()
	drivers[name] = factory
}

// NewDatabase creates a new database instance based on the provided configuration.
// It automatically detects the backend from the URL if Backend is not specified.
func NewDatabase(cfg Config) (Database, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = DetectBackend(cfg.URL)
	}

	mu.RLock()
	factory, exists := drivers[backend]
	mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown database backend: %s (available: %v)", backend, GetRegisteredDrivers())
	}

	return factory(), nil
}

// DetectBackend determines the database backend from a URL. Only sqlite
// is wired today; this stays a function (rather than inlining "sqlite")
// so a second backend can be added without touching callers.
func DetectBackend(url string) string {
	if strings.HasPrefix(url, "file:") || strings.HasSuffix(url, ".db") || strings.HasSuffix(url, ".sqlite") {
		return "sqlite"
	}
	return "sqlite"
}

// GetRegisteredDrivers returns a list of registered driver names
func GetRegisteredDrivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}

// ResetRegistry clears all registered drivers (used for testing)
func ResetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	drivers = make(map[string]DriverFactory)
}

// InitDatabase creates a database instance, connects it, and verifies the
// connection with a ping.
func InitDatabase(ctx context.Context, cfg Config) (Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	database, err := NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if err := database.Connect(ctx, cfg.URL); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Ping(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return database, nil
}

// init registers the SQLite driver by default.
func init() {
	RegisterDriver("sqlite", func() Database {
		return NewSQLiteDriver()
	})
}
