package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/khanglvm/devtools-hub/internal/config"
	"github.com/khanglvm/devtools-hub/internal/history"
	"github.com/khanglvm/devtools-hub/internal/logger"
	"github.com/khanglvm/devtools-hub/internal/preference"
	"github.com/khanglvm/devtools-hub/internal/ranking"
	"github.com/khanglvm/devtools-hub/internal/search"
	"github.com/khanglvm/devtools-hub/internal/storage"
)

// app holds the services shared by the commands.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *storage.SQLiteStorage
	index   *search.Indexer
	history *history.Service
	prefs   *preference.Service
	ranker  *ranking.Scorer
}

// openApp loads configuration and opens the store. With withIndex set, the
// search index is built from the store before returning.
func openApp(ctx context.Context, configPath string, withIndex bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbPath, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	opts := []storage.Option{
		storage.WithQuotaPages(cfg.Storage.QuotaPages),
		storage.WithLogger(log),
	}
	var store *storage.SQLiteStorage
	if dbPath == "" {
		store = storage.NewStorage(opts...)
	} else {
		store = storage.NewStorageAt(dbPath, opts...)
	}
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		prefs:  preference.NewService(store, preference.WithLogger(log)),
		ranker: ranking.NewScorer(cfg.History.RetentionCap),
	}

	histOpts := []history.Option{
		history.WithCap(cfg.History.RetentionCap),
		history.WithListLimit(cfg.History.ListLimit),
		history.WithLogger(log),
	}
	if withIndex {
		idx, err := search.NewIndexer(log)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.index = idx
		histOpts = append(histOpts, history.WithIndex(idx))
	}
	a.history = history.NewService(store, histOpts...)

	if withIndex {
		if err := a.history.Reindex(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to build search index: %w", err)
		}
	}

	return a, nil
}

// Close releases the index and the store.
func (a *app) Close() error {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close search index")
		}
	}
	return a.store.Close()
}
