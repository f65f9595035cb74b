/*
Package reactive binds the history and preference services to the current
location of a query.Router.

Both bindings derive the tool from the router path, reload when the tool
changes and expose their state through State and Subscribe. Loads run in the
background; a load that finishes after a newer one was started is discarded.
*/
package reactive

import (
	"strings"

	"github.com/rs/zerolog"
)

// HomeTool is the tool key of the root path.
const HomeTool = "home"

// ToolFromPath returns the tool key for a location path: its first segment,
// lower-cased, or HomeTool for the root.
func ToolFromPath(path string) string {
	path = strings.TrimLeft(path, "/")
	seg, _, _ := strings.Cut(path, "/")
	if seg == "" {
		return HomeTool
	}
	return strings.ToLower(seg)
}

type options struct {
	log   zerolog.Logger
	limit int
}

// Option configures a binding.
type Option func(*options)

// WithLogger sets the binding logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithLimit sets how many history entries the History binding loads.
// Non-positive values use the service default.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.With().Str("component", component).Logger()
	return o
}
