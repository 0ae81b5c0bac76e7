package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwwelbor/shark-task-manager/internal/cascade"
	"github.com/jwwelbor/shark-task-manager/internal/cli"
	"github.com/jwwelbor/shark-task-manager/internal/db"
	"github.com/jwwelbor/shark-task-manager/internal/mcpserver"
	"github.com/jwwelbor/shark-task-manager/internal/orchestrator"
	"github.com/jwwelbor/shark-task-manager/internal/progression"
	"github.com/jwwelbor/shark-task-manager/internal/statusvalidator"
	"github.com/jwwelbor/shark-task-manager/internal/store"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// serveVersion is set by main via SetServeVersion (alongside
// cli.SetVersion) and reported as the MCP serverInfo.version, so a
// client sees the same build string as `taskctl --version`.
var serveVersion = "dev"

// serveCmd starts the MCP server, wiring the entity store, workflow
// config loader, and the C3-C7 engine behind the single apply_transitions
// tool, then serving requests over stdio until stdin closes or the
// process receives an interrupt.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow engine over MCP (stdio)",
	Long: `Starts a JSON-RPC server on stdin/stdout speaking the Model Context
Protocol, exposing the status workflow engine as the apply_transitions
tool. Intended to be launched by an MCP client, not run interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := cli.GetDBPath()
		if err != nil {
			return err
		}
		workDir, err := cli.FindProjectRoot()
		if err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		database, err := db.InitDatabase(ctx, db.Config{Backend: "sqlite", URL: dbPath})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer database.Close() //nolint:errcheck

		driver, ok := database.(*db.SQLiteDriver)
		if !ok {
			return fmt.Errorf("serve: backend %q does not expose a *sql.DB handle", database.DriverName())
		}
		sqlDB, err := driver.GetSQLDB()
		if err != nil {
			return fmt.Errorf("get sql.DB handle: %w", err)
		}
		if err := db.Migrate(ctx, sqlDB, dbPath+".lock", logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		entityStore := store.New(database, logger)
		loader := workflowconfig.NewLoader(logger)
		validator := statusvalidator.New(loader)
		prog := progression.New(loader)
		cascadeSvc := cascade.New(entityStore, loader, validator, prog)
		svc := orchestrator.New(entityStore, loader, validator, prog, cascadeSvc)

		registry := mcpserver.NewRegistry()
		registry.Register(mcpserver.NewTransitionsTool(svc, workDir))

		srv := mcpserver.NewServer(registry, mcpserver.ServerInfo{
			Name:    "taskctl",
			Version: serveVersion,
		}, logger)

		return srv.Run(ctx)
	},
}

func init() {
	cli.RootCmd.AddCommand(serveCmd)
}

// SetServeVersion lets main propagate the build-time version into the
// MCP serverInfo reported to clients.
func SetServeVersion(v string) {
	serveVersion = v
}
