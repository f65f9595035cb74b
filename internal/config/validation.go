package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var problems []string

	if c.Storage.QuotaPages < 0 {
		problems = append(problems, fmt.Sprintf("storage.quotaPages must not be negative (got %d)", c.Storage.QuotaPages))
	}
	if c.History.RetentionCap <= 0 {
		problems = append(problems, fmt.Sprintf("history.retentionCap must be positive (got %d)", c.History.RetentionCap))
	}
	if c.History.ListLimit <= 0 {
		problems = append(problems, fmt.Sprintf("history.listLimit must be positive (got %d)", c.History.ListLimit))
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		problems = append(problems, fmt.Sprintf("server.addr %q is not host:port", c.Server.Addr))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is unknown", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return &InvalidConfigError{
			Path:    "settings",
			Message: strings.Join(problems, "\n"),
			Hint:    "Fix the listed settings in ~/.devtools-hub.json or the DEVTOOLS_* environment",
		}
	}
	return nil
}
