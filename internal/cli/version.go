package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/devtools-hub/internal/version"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, build date and Go version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Version:  %s\n", info.Version)
			fmt.Fprintf(w, "Commit:   %s\n", info.Commit)
			fmt.Fprintf(w, "Built:    %s\n", info.Date)
			fmt.Fprintf(w, "Go:       %s\n", info.GoVersion)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
