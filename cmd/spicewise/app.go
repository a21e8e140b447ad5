package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/Veraticus/spicewise/internal/assistant"
	"github.com/Veraticus/spicewise/internal/cache"
	"github.com/Veraticus/spicewise/internal/common"
	"github.com/Veraticus/spicewise/internal/config"
	"github.com/Veraticus/spicewise/internal/llm"
	"github.com/Veraticus/spicewise/internal/metrics"
	"github.com/Veraticus/spicewise/internal/service"
	"github.com/Veraticus/spicewise/internal/storage"
)

// app bundles everything a command needs to talk to the model and the store.
type app struct {
	cfg     *config.Config
	store   *storage.SQLiteStorage
	gateway *assistant.Gateway
	closers []func() error
	stop    context.CancelFunc
}

// newApp loads configuration, opens and migrates the database, selects the
// insight cache and builds the gateway.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store, closers: []func() error{store.Close}}

	insightCache, err := a.openInsightCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var serveCtx context.Context
	serveCtx, a.stop = context.WithCancel(ctx)
	recorder := a.startMetrics(serveCtx)

	clientCfg := cfg.LLMClientConfig()
	clientCfg.Recorder = recorder
	clientCfg.Logger = slog.Default()
	client, err := llm.NewClient(clientCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.gateway, err = assistant.New(assistant.Deps{
		Client:        client,
		Categories:    store,
		Conversations: store,
		Transactions:  store,
		Cache:         insightCache,
		Logger:        slog.Default(),
		APIKey:        cfg.LLM.APIKey,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	slog.Debug("gateway ready",
		"endpoint", client.Endpoint(),
		"database", store.Path(),
		"insight_cache", cfg.Insights.Cache)
	return a, nil
}

// Close releases the store, the cache and the metrics server.
func (a *app) Close() {
	if a.stop != nil {
		a.stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
}

func (a *app) openInsightCache(ctx context.Context) (service.InsightCache, error) {
	switch a.cfg.Insights.Cache {
	case config.CacheRedis:
		rc, err := cache.NewRedisInsightCache(ctx, cache.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			TTL:      a.cfg.Insights.TTL,
		})
		if err != nil {
			return nil, common.NewUserError("could not connect to the redis insight cache", err)
		}
		a.closers = append(a.closers, rc.Close)
		return rc, nil
	case config.CacheNone:
		return nil, nil
	default:
		a.store.SetInsightTTL(a.cfg.Insights.TTL)
		return a.store, nil
	}
}

// startMetrics registers the gateway collectors and, when an address is
// configured, serves them until ctx ends.
func (a *app) startMetrics(ctx context.Context) *metrics.Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, reg); err != nil {
				slog.Warn("metrics server stopped", "addr", addr, "error", err)
			}
		}()
	}
	return recorder
}

// openStore opens the database at path and brings its schema up to date.
func openStore(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// explain turns gateway errors into actionable messages.
func explain(err error) error {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return err
	}

	switch {
	case errors.Is(err, common.ErrMissingConfig):
		return common.NewUserError(fmt.Sprintf("no API key configured; set llm.api_key or %s", config.APIKeyEnv), err)
	case errors.Is(err, llm.ErrInvalidCredential):
		return common.NewUserError("the API key was rejected", err)
	case llm.IsRateLimited(err):
		return common.NewUserError("the model is rate limiting requests; try again shortly", err)
	case errors.Is(err, llm.ErrServerFailure):
		return common.NewUserError("the model service is unavailable", err)
	case errors.Is(err, llm.ErrNetworkFailure):
		return common.NewUserError("could not reach the model service", err)
	case errors.Is(err, llm.ErrCancelled):
		return common.NewUserError("cancelled", nil)
	case errors.Is(err, assistant.ErrStoreNotConfigured):
		return common.NewUserError("this command needs the database", err)
	default:
		return err
	}
}

// dateRange converts --from/--to flags into an inclusive transaction filter.
func dateRange(from, to string) (service.TransactionFilter, error) {
	var filter service.TransactionFilter
	if from != "" {
		start, err := time.ParseInLocation(time.DateOnly, from, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --from date (use YYYY-MM-DD): %w", err)
		}
		filter.StartDate = &start
	}
	if to != "" {
		day, err := time.ParseInLocation(time.DateOnly, to, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --to date (use YYYY-MM-DD): %w", err)
		}
		end := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.EndDate = &end
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, fmt.Errorf("--to must not be before --from")
	}
	return filter, nil
}
