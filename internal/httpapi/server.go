// Package httpapi exposes the history and preference services over a local
// HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/khanglvm/devtools-hub/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the gin engine with graceful shutdown helpers.
type Server struct {
	addr   string
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(addr string, svc Services, log zerolog.Logger) *Server {
	log = log.With().Str("component", "httpapi").Logger()

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log), metricsMiddleware())

	h := &handlers{svc: svc, log: log}
	registerRoutes(engine, h)

	return &Server{
		addr:   addr,
		engine: engine,
		log:    log,
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP API")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerRoutes(engine *gin.Engine, h *handlers) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "build": version.Get()})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/tools", h.listTools)

	hist := api.Group("/history/:tool")
	hist.GET("", h.listHistory)
	hist.POST("", h.addHistory)
	hist.DELETE("", h.clearHistory)
	hist.GET("/search", h.searchHistory)
	hist.DELETE("/:id", h.deleteHistory)

	prefs := api.Group("/preferences/:tool")
	prefs.GET("", h.getPreferences)
	prefs.PUT("", h.putPreferences)
	prefs.PATCH("", h.patchPreferences)
	prefs.DELETE("", h.deletePreferences)
}
