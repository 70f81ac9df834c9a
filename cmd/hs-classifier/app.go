package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spherical/hs-classifier/internal/cache"
	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/config"
	"github.com/spherical/hs-classifier/internal/connector"
	"github.com/spherical/hs-classifier/internal/evidence"
	"github.com/spherical/hs-classifier/internal/llm"
	"github.com/spherical/hs-classifier/internal/monitoring"
	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/storage"
)

// app holds the wired classifier and its optional backing services.
type app struct {
	cfg     *config.Config
	logger  *observability.Logger
	invoker *llm.Invoker
	service *classifier.Service
	results *cache.ResultCache
	redis   *cache.RedisClient
	store   *storage.Store
	auditor *monitoring.AuditLogger

	closers []func() error
}

// newApp wires every component from cfg. channel tags audit events with the
// surface that raised them (cli, batch or api).
func newApp(ctx context.Context, cfg *config.Config, logger *observability.Logger, channel string) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	gen, err := llm.New(cfg.Model.Provider, llm.Options{
		Model:   cfg.Model.Name,
		APIKey:  cfg.Model.APIKey,
		BaseURL: cfg.Model.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	a.invoker = llm.NewInvoker(gen, cfg.Model.Timeout, logger)

	client, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	if client != nil {
		a.closers = append(a.closers, client.Close)
		if rc, ok := client.(*cache.RedisClient); ok {
			a.redis = rc
		}
	}
	a.results = cache.NewResultCache(client, cfg.Cache.TTL)

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		a.store = store
		a.closers = append(a.closers, store.Close)
	}

	var publisher monitoring.Publisher
	if a.redis != nil {
		publisher = a.redis
	}
	a.auditor = monitoring.NewAuditLogger(logger, publisher, cfg.Observability.AuditChannel)

	registry := connector.NewRegistry(cfg.Connectors, nil, logger)
	agg := evidence.NewAggregator(registry, logger)
	a.service = classifier.NewService(agg, a.invoker, logger, classifier.WithAuditor(a.auditor, channel))

	logger.Debug().
		Str("provider", a.invoker.Provider()).
		Str("cache", cfg.Cache.Driver).
		Str("storage", cfg.Storage.Driver).
		Msg("Classifier wired")

	return a, nil
}

// saveHistory persists a successful report when storage is configured.
func (a *app) saveHistory(ctx context.Context, req classifyInput, rep *classifier.Report) {
	if a.store == nil {
		return
	}
	rec := &storage.Record{
		ID:          rep.ID,
		Region:      rep.Region,
		Description: req.Description,
		HasImage:    req.Image != nil,
		Provider:    rep.Provider,
		Result:      rep.Result,
	}
	if err := a.store.History.Save(ctx, rec); err != nil {
		a.logger.Warn().Err(err).Str("classification_id", rep.ID.String()).Msg("Failed to save history")
	}
}

// Close releases the cache and storage connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
