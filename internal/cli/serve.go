package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/devtools-hub/internal/httpapi"
)

// NewServeCmd creates the 'serve' command for running the local HTTP API.
func NewServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		Long: `Start the devtools-hub HTTP API.

Routes:
  GET    /healthz
  GET    /metrics
  GET    /api/tools
  GET    /api/history/:tool?limit=N
  POST   /api/history/:tool
  DELETE /api/history/:tool
  DELETE /api/history/:tool/:id
  GET    /api/history/:tool/search?q=...
  GET|PUT|PATCH|DELETE /api/preferences/:tool`,
		Example: `  devtools-hub serve
  devtools-hub serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

// runServe runs the HTTP API until SIGINT/SIGTERM/SIGQUIT.
func runServe(ctx context.Context, configPath, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a, err := openApp(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	gin.SetMode(gin.ReleaseMode)
	server := httpapi.New(addr, httpapi.Services{
		History:     a.history,
		Preferences: a.prefs,
		Ranker:      a.ranker,
		Stats:       a.store,
	}, a.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		// A lowered cap only takes effect on the next add; sweep once now.
		if err := a.history.Trim(gctx); err != nil {
			a.log.Warn().Err(err).Msg("retention sweep failed")
		}
		return nil
	})

	return g.Wait()
}
