/*
Package cli implements the devtools-hub command line.

Every command loads the configuration named by --config (default
~/.devtools-hub.json), opens the local store and runs against the same
services as the HTTP API.
*/
package cli

import (
	"github.com/spf13/cobra"

	"github.com/khanglvm/devtools-hub/internal/version"
)

// NewRootCmd creates the devtools-hub root command with all subcommands.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "devtools-hub",
		Short: "Local history and preferences for developer utility pages",
		Long: `devtools-hub keeps the usage history and preferences of small developer
utilities (base64, hash, HMAC, cookie parser, number bases, UUID, URL encoder)
in a local SQLite store, and serves them over a loopback HTTP API.

Each tool keeps its 50 most recent entries. Preferences are one JSON object
per tool.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.devtools-hub.json)")

	cmd.AddCommand(NewServeCmd(&configPath))
	cmd.AddCommand(NewHistoryCmd(&configPath))
	cmd.AddCommand(NewPrefCmd(&configPath))
	cmd.AddCommand(NewConfigCmd(&configPath))
	cmd.AddCommand(NewQueryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}
