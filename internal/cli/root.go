// Package cli is the datadesk command line: the desktop app by default,
// plus the mcp, records and settings subcommands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datadesk/internal/app"
	"datadesk/internal/service"
)

var (
	flagConfigDir string
	flagDataDir   string

	version    = "dev"
	runDesktop func(app.Config) error

	// cfg is resolved from config.yaml, env and flags before any command runs.
	cfg app.Config
)

var rootCmd = &cobra.Command{
	Use:   "datadesk",
	Short: "Browse and edit a record list stored behind a webhook, a database table or a JSON file",
	Long: `datadesk shows one list of records in a sortable, filterable table with
inline cell editing and a form editor. Every change is saved to the
configured backend first and only then applied locally.

Without a subcommand the desktop app opens.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runDesktop == nil {
			return cmd.Help()
		}
		return runDesktop(cfg)
	},
}

// Execute runs the command line. desktop opens the window when no
// subcommand is given.
func Execute(v string, desktop func(app.Config) error) error {
	version = v
	runDesktop = desktop
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default: $XDG_CONFIG_HOME/datadesk)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: ~/.local/share/datadesk)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(settingsCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir := flagConfigDir
	if configDir == "" {
		configDir = defaultConfigDir()
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	cfg = appConfig(v, flagDataDir)
	return nil
}

// withCore opens storage and services for one CLI command.
func withCore(fn func(core *app.Core) error) error {
	core, err := app.OpenCore(cfg, service.NoopEmitter{})
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(core)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "datadesk %s\n", version)
	},
}

var flagAutoApprove bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the record tools to AI agents over MCP (stdio)",
	Long: `Runs an MCP server on stdin/stdout exposing load_records, list_columns,
create_record, update_record, delete_record, get_settings and set_webhooks.

delete_record waits for approval in the running desktop app unless
--auto-approve is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.ServeMCP(cfg, version, flagAutoApprove)
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&flagAutoApprove, "auto-approve", false, "run destructive tools without asking")
}
