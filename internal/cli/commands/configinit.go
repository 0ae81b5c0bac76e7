package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jwwelbor/shark-task-manager/internal/cli"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// configCmd groups workflow-config related subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the workflow configuration file",
}

// configInitCmd writes the bundled default .taskorchestrator/config.yaml
// to the project root, refusing to clobber an existing one.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .taskorchestrator/config.yaml",
	Long: `Creates .taskorchestrator/config.yaml at the project root with the
bundled default flow: a single untagged flow per container, no flow
mappings, and every validation/cascade flag at its conservative default.
Edit the file afterward to add tag-selected flows and mappings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		workDir, err := cli.FindProjectRoot()
		if err != nil {
			return err
		}

		configPath := filepath.Join(workDir, workflowconfig.ConfigRelPath)
		if _, err := os.Stat(configPath); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		if err := os.WriteFile(configPath, []byte(workflowconfig.BundledYAML), 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		cli.Success(fmt.Sprintf("wrote %s", configPath))
		return nil
	},
}

// configShowCmd prints the effective config: the one loaded from disk,
// or the bundled default when none exists yet.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective workflow configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := cli.FindProjectRoot()
		if err != nil {
			return err
		}

		configPath := filepath.Join(workDir, workflowconfig.ConfigRelPath)
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				cli.Warning(fmt.Sprintf("%s not found, showing bundled default", configPath))
				fmt.Print(workflowconfig.BundledYAML)
				return nil
			}
			return fmt.Errorf("read config file: %w", err)
		}

		fmt.Print(string(data))
		return nil
	},
}

func init() {
	cli.RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing config.yaml")
}
