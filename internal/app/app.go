// Package app assembles the lookup engine from configuration. Both binaries
// share it so the stores, client and services are wired one way.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "lookout/internal/http"
	ledgermetrics "lookout/internal/ledger/metrics"
	ledgerports "lookout/internal/ledger/ports"
	ledgerservice "lookout/internal/ledger/service"
	ledgerstore "lookout/internal/ledger/store"
	"lookout/internal/lookup/adapters"
	"lookout/internal/lookup/cache"
	cachestore "lookout/internal/lookup/cache/store"
	"lookout/internal/lookup/dispatcher"
	lookupmetrics "lookout/internal/lookup/metrics"
	"lookout/internal/lookup/router"
	lookupservice "lookout/internal/lookup/service"
	"lookout/internal/platform/config"
	"lookout/internal/platform/httpclient"
	"lookout/internal/platform/metrics"
	"lookout/internal/platform/postgres"
	"lookout/internal/platform/redis"
	audit "lookout/pkg/platform/audit"
	"lookout/pkg/platform/audit/publisher"
	auditkafka "lookout/pkg/platform/audit/store/kafka"
	auditmemory "lookout/pkg/platform/audit/store/memory"
)

const auditBuffer = 1024

// App is a fully wired engine. Close releases everything it opened.
type App struct {
	Lookup *lookupservice.Service
	Ledger *ledgerservice.Service
	Cache  *cache.Cache
	// OpsOptions configures the ops handler: readiness checks for the opened
	// backends plus shared logger and metrics.
	OpsOptions []httpapi.Option

	closers []func(ctx context.Context) error
}

// New wires the engine described by cfg. On error, anything already opened
// is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}
	if err := a.build(ctx, cfg, logger); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	process := metrics.New()
	process.SetBackends(cfg.Server.CacheBackend, cfg.Server.LedgerBackend)
	lookupMetrics := lookupmetrics.New()

	var (
		db   *sql.DB
		pool *pgxpool.Pool
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		a.onClose(func(context.Context) error { return db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		pool, err = postgres.OpenPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		a.onClose(func(context.Context) error { pool.Close(); return nil })
		a.OpsOptions = append(a.OpsOptions, httpapi.WithCheck("postgres", db.PingContext))
	}

	auditor, err := a.auditor(ctx, cfg.Kafka, logger)
	if err != nil {
		return err
	}

	cacheStore, err := a.cacheStore(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	a.Cache, err = cache.New(cacheStore, cache.WithLogger(logger), cache.WithMetrics(lookupMetrics))
	if err != nil {
		return err
	}

	var ledgerStore ledgerports.Store = ledgerstore.NewInMemory()
	if cfg.Server.LedgerBackend == "postgres" {
		ledgerStore = ledgerstore.NewPostgres(pool)
	}
	a.Ledger, err = ledgerservice.New(ledgerStore,
		ledgerservice.WithLogger(logger),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithAuditor(auditor),
	)
	if err != nil {
		return err
	}

	client := httpclient.New(cfg.Lookup.MaxInFlight)
	catalog, err := adapters.NewCatalog(cfg.Providers, client)
	if err != nil {
		return fmt.Errorf("build adapter catalog: %w", err)
	}
	registry, err := adapters.NewRegistry(catalog...)
	if err != nil {
		return fmt.Errorf("build adapter registry: %w", err)
	}
	fanout, err := dispatcher.New(registry,
		dispatcher.WithTimeouts(cfg.Lookup.AdapterTimeout),
		dispatcher.WithLogger(logger),
		dispatcher.WithMetrics(lookupMetrics),
	)
	if err != nil {
		return err
	}

	a.Lookup, err = lookupservice.New(router.New(), fanout, a.Cache,
		lookupservice.WithLedger(a.Ledger),
		lookupservice.WithQueryCost(cfg.Lookup.QueryCost),
		lookupservice.WithCacheTTL(cfg.Lookup.CacheTTL),
		lookupservice.WithRequestTimeout(cfg.Lookup.RequestTimeout),
		lookupservice.WithAuditor(auditor),
		lookupservice.WithLogger(logger),
		lookupservice.WithMetrics(lookupMetrics),
	)
	if err != nil {
		return err
	}
	a.OpsOptions = append(a.OpsOptions, httpapi.WithMetrics(process), httpapi.WithLogger(logger))

	logger.InfoContext(ctx, "lookup engine ready",
		"adapters", len(registry.Kinds()),
		"cache_backend", cfg.Server.CacheBackend,
		"ledger_backend", cfg.Server.LedgerBackend,
		"audit_kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return nil
}

func (a *App) cacheStore(ctx context.Context, cfg *config.Config, db *sql.DB, logger *slog.Logger) (cache.Store, error) {
	switch cfg.Server.CacheBackend {
	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return client.Close() })
		a.OpsOptions = append(a.OpsOptions, httpapi.WithCheck("redis", client.Health))
		return cachestore.NewRedis(client.Client), nil
	case "postgres":
		return cachestore.NewPostgres(db), nil
	default:
		logger.WarnContext(ctx, "using in-memory profile cache; entries are lost on restart")
		return cachestore.NewInMemory(), nil
	}
}

// auditor streams to Kafka when brokers are configured and otherwise keeps
// events in memory. Either way emission is asynchronous.
func (a *App) auditor(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (audit.Emitter, error) {
	var st audit.Store = auditmemory.NewInMemoryStore()
	if len(cfg.Brokers) > 0 {
		ks, err := auditkafka.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.onClose(ks.Close)
		st = ks
	}
	pub := publisher.NewPublisher(st, publisher.WithAsyncBuffer(auditBuffer), publisher.WithLogger(logger))
	a.onClose(func(context.Context) error { pub.Close(); return nil })
	return pub, nil
}

func (a *App) onClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
