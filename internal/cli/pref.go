package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewPrefCmd creates the 'pref' command group.
func NewPrefCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pref",
		Aliases: []string{"prefs"},
		Short:   "Read and write tool preferences",
	}

	cmd.AddCommand(newPrefGetCmd(configPath))
	cmd.AddCommand(newPrefSetCmd(configPath))
	cmd.AddCommand(newPrefRemoveCmd(configPath))

	return cmd
}

func newPrefGetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <tool>",
		Short: "Print a tool's preferences as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.prefs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if data == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No preferences stored for %s.\n", args[0])
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), data)
		},
	}
}

func newPrefSetCmd(configPath *string) *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "set <tool> <json>",
		Short: "Store a tool's preferences",
		Long: `Store a JSON object as the preferences of a tool.

By default the object replaces what is stored. With --merge its keys are laid
over the stored object and a null value removes a key.`,
		Args: cobra.ExactArgs(2),
		Example: `  devtools-hub pref set hash '{"algorithm":"sha256"}'
  devtools-hub pref set hash '{"uppercase":true}' --merge`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data map[string]any
			if err := json.Unmarshal([]byte(args[1]), &data); err != nil || data == nil {
				return fmt.Errorf("preferences must be a JSON object")
			}

			a, err := openApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if merge {
				if data, err = a.prefs.Merge(cmd.Context(), args[0], data); err != nil {
					return err
				}
			} else if err := a.prefs.Set(cmd.Context(), args[0], data); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().BoolVarP(&merge, "merge", "m", false, "Merge into stored preferences instead of replacing")

	return cmd
}

func newPrefRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <tool>",
		Aliases: []string{"remove"},
		Short:   "Delete a tool's preferences",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.prefs.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed preferences of %s\n", args[0])
			return nil
		},
	}
}
