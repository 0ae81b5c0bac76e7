package main

import (
	"os"

	"github.com/jwwelbor/shark-task-manager/internal/cli"
	"github.com/jwwelbor/shark-task-manager/internal/cli/commands"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	// Set version in CLI before executing
	cli.SetVersion(Version)
	commands.SetServeVersion(Version)

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
