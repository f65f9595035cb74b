package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/devtools-hub/internal/history"
)

// NewHistoryCmd creates the 'history' command group.
func NewHistoryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Inspect and edit tool history",
	}

	cmd.AddCommand(newHistoryListCmd(configPath))
	cmd.AddCommand(newHistoryAddCmd(configPath))
	cmd.AddCommand(newHistoryRemoveCmd(configPath))
	cmd.AddCommand(newHistoryClearCmd(configPath))
	cmd.AddCommand(newHistorySearchCmd(configPath))
	cmd.AddCommand(newHistoryToolsCmd(configPath))

	return cmd
}

func newHistoryListCmd(configPath *string) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list <tool>",
		Aliases: []string{"ls"},
		Short:   "List a tool's history, newest first",
		Args:    cobra.ExactArgs(1),
		Example: `  devtools-hub history list base64
  devtools-hub history ls hash --limit 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.history.List(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), args[0], items, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries (default history.listLimit)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func newHistoryAddCmd(configPath *string) *cobra.Command {
	var (
		input, output         string
		inputFile, outputFile string
		inputType, outputType string
		label, params         string
	)

	cmd := &cobra.Command{
		Use:   "add <tool>",
		Short: "Record a tool invocation",
		Args:  cobra.ExactArgs(1),
		Example: `  devtools-hub history add base64 --input hello --output aGVsbG8= --params "mode=encode"
  devtools-hub history add image --input-file in.svg --output-file out.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := url.ParseQuery(params)
			if err != nil {
				return fmt.Errorf("invalid --params: %w", err)
			}

			entry := history.Entry{
				Input:      input,
				Output:     output,
				InputType:  inputType,
				OutputType: outputType,
				Label:      label,
			}
			if inputFile != "" {
				if entry.Input, err = os.ReadFile(inputFile); err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
			}
			if outputFile != "" {
				if entry.Output, err = os.ReadFile(outputFile); err != nil {
					return fmt.Errorf("failed to read output: %w", err)
				}
			}

			a, err := openApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.history.Add(cmd.Context(), args[0], q, entry)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added entry %d to %s\n", rec.ID, rec.Tool)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output text")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "Read input bytes from file")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Read output bytes from file")
	cmd.Flags().StringVar(&inputType, "input-type", "", "Input MIME type (default text/plain, or sniffed for files)")
	cmd.Flags().StringVar(&outputType, "output-type", "", "Output MIME type (default text/plain, or sniffed for files)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Entry label")
	cmd.Flags().StringVarP(&params, "params", "p", "", "Query string the tool was used with")
	cmd.MarkFlagsMutuallyExclusive("input", "input-file")
	cmd.MarkFlagsMutuallyExclusive("output", "output-file")

	return cmd
}

func newHistoryRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Delete history entries by id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q", arg)
				}
				ids[i] = id
			}

			a, err := openApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range ids {
				if err := a.history.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", len(ids))
			return nil
		},
	}
}

func newHistoryClearCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <tool>",
		Short: "Delete every history entry of a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.history.Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared history of %s\n", args[0])
			return nil
		},
	}
}

func newHistorySearchCmd(configPath *string) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <tool> <query>",
		Short: "Full-text search a tool's history",
		Args:  cobra.MinimumNArgs(2),
		Example: `  devtools-hub history search json "user id"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.history.Search(cmd.Context(), args[0], strings.Join(args[1:], " "), limit)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), args[0], items, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func newHistoryToolsCmd(configPath *string) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools ranked by frequency and recency of use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryTools(cmd.Context(), cmd.OutOrStdout(), *configPath, limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum tools (0 = all)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runHistoryTools(ctx context.Context, w io.Writer, configPath string, limit int, jsonOutput bool) error {
	a, err := openApp(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer a.Close()

	tools, err := a.ranker.RankTools(ctx, a.store, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(w, tools)
	}
	if len(tools) == 0 {
		fmt.Fprintln(w, "No history recorded yet.")
		return nil
	}
	fmt.Fprintf(w, "Tools (%d):\n\n", len(tools))
	for _, t := range tools {
		fmt.Fprintf(w, "  %-12s %3d entries  last used %s  score %.2f\n",
			t.Tool, t.Count, formatMillis(t.LastUsed), t.Score)
	}
	return nil
}

func printEntries(w io.Writer, tool string, items []history.Item, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintf(w, "No history for %s.\n", tool)
		return nil
	}

	fmt.Fprintf(w, "History of %s (%d):\n\n", tool, len(items))
	for _, item := range items {
		fmt.Fprintf(w, "  #%d  %s", item.ID, formatMillis(item.CreatedAt))
		if item.Label != "" {
			fmt.Fprintf(w, "  %s", item.Label)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    in:  %s\n", preview(item.InputText, item.InputType, len(item.Input)))
		fmt.Fprintf(w, "    out: %s\n", preview(item.OutputText, item.OutputType, len(item.Output)))
		if params := history.DecodeParams(item.Params); len(params) > 0 {
			fmt.Fprintf(w, "    params: %s\n", params.Encode())
		}
	}
	return nil
}

const previewLen = 60

func preview(text *string, mimeType string, size int) string {
	if text == nil {
		return fmt.Sprintf("<%s, %d bytes>", mimeType, size)
	}
	s := strings.ReplaceAll(*text, "\n", `\n`)
	if r := []rune(s); len(r) > previewLen {
		s = string(r[:previewLen]) + "..."
	}
	return s
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
