package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jwwelbor/shark-task-manager/internal/cli"
	"github.com/jwwelbor/shark-task-manager/internal/db"
)

// migrateCmd applies pending schema migrations to the entity database,
// creating it first if it does not exist.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Connects to the configured SQLite database, takes out an advisory
lock, and brings the schema up to the latest migration. Safe to run
repeatedly; a database already at the latest version is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := cli.GetDBPath()
		if err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx := context.Background()

		database, err := db.InitDatabase(ctx, db.Config{Backend: "sqlite", URL: dbPath})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer database.Close() //nolint:errcheck

		driver, ok := database.(*db.SQLiteDriver)
		if !ok {
			return fmt.Errorf("migrate: backend %q does not expose a *sql.DB handle", database.DriverName())
		}
		sqlDB, err := driver.GetSQLDB()
		if err != nil {
			return fmt.Errorf("get sql.DB handle: %w", err)
		}

		if err := db.Migrate(ctx, sqlDB, dbPath+".lock", logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		version, err := db.SchemaVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}

		cli.Success(fmt.Sprintf("database %s is at schema version %d", dbPath, version))
		return nil
	},
}

func init() {
	cli.RootCmd.AddCommand(migrateCmd)
}

// newLogger builds the zap logger used by commands that talk to the
// store or config loader, honoring --verbose for debug-level output.
func newLogger() (*zap.Logger, error) {
	if cli.GlobalConfig.Verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
