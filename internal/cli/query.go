package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/devtools-hub/internal/param"
	"github.com/khanglvm/devtools-hub/internal/query"
)

var codecsByType = map[string]param.AnyCodec{
	"string": param.Erase(param.String),
	"number": param.Erase(param.Number),
	"int":    param.Erase(param.Int),
	"bool":   param.Erase(param.Bool),
	"array":  param.Erase(param.StringArray),
}

// NewQueryCmd creates the 'query' command, which applies parameter updates to
// a URL the way a tool page would.
func NewQueryCmd() *cobra.Command {
	var (
		sets     []string
		types    []string
		modeName string
		decode   bool
	)

	cmd := &cobra.Command{
		Use:   "query <url>",
		Short: "Apply query parameter updates to a URL",
		Long: `Apply typed parameter updates to a URL and print the result.

Update modes:
  replaceIn  merge into the current query, replace history entry (default)
  pushIn     merge into the current query, push history entry
  replace    drop unrelated keys, replace history entry
  push       drop unrelated keys, push history entry

A value that encodes to nothing (empty string, unparsable number) removes the
key. Array values are comma-separated.`,
		Args: cobra.ExactArgs(1),
		Example: `  devtools-hub query "/hash?alg=sha1&upper=1" --set alg=sha256
  devtools-hub query "/hash?alg=sha1&upper=1" --set alg=sha256 --mode replace
  devtools-hub query "/base64?tab=encode" --set tab= --decode
  devtools-hub query "/uuid" --set count=5 --type count=int --set tags=a,b --type tags=array`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := query.ParseUpdateMode(modeName)
			if err != nil {
				return err
			}
			out, err := applyQuery(args[0], sets, types, mode)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, out.Location().String())
			if decode {
				return writeJSON(w, out.Query())
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Parameter update key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&types, "type", "t", nil, "Parameter type key=string|number|int|bool|array (repeatable)")
	cmd.Flags().StringVarP(&modeName, "mode", "m", query.ReplaceIn.String(), "Update mode")
	cmd.Flags().BoolVarP(&decode, "decode", "d", false, "Also print the resulting query as JSON")

	return cmd
}

// applyQuery binds every updated key with its codec and commits the updates
// in one navigation.
func applyQuery(rawURL string, sets, types []string, mode query.UpdateMode) (*query.Router, error) {
	router, err := query.ParseRouter(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	typeOf := make(map[string]string, len(types))
	for _, t := range types {
		key, name, ok := strings.Cut(t, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --type %q, want key=type", t)
		}
		if _, known := codecsByType[name]; !known {
			return nil, fmt.Errorf("unknown type %q (want %s)", name, strings.Join(typeNames(), ", "))
		}
		typeOf[key] = name
	}

	codecs := make(map[string]param.AnyCodec, len(sets))
	partial := make(query.Record, len(sets))
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", s)
		}

		name := typeOf[key]
		if name == "" {
			name = "string"
		}
		codec := codecsByType[name]
		codecs[key] = codec

		var raw param.Raw
		switch {
		case value == "":
		case name == "array":
			raw = strings.Split(value, ",")
		default:
			raw = param.Raw{value}
		}
		partial[key] = codec.DecodeAny(raw)
	}

	query.BindSet(router, codecs).Set(partial, mode)
	return router, nil
}

func typeNames() []string {
	names := make([]string, 0, len(codecsByType))
	for name := range codecsByType {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
