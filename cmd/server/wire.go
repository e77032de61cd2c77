package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"keygate/internal/auth/apikey"
	"keygate/internal/auth/ports"
	"keygate/internal/auth/resolver"
	apikeystore "keygate/internal/auth/store/apikey"
	"keygate/internal/auth/token"
	"keygate/internal/indexing"
	"keygate/internal/indexing/elasticsearch"
	"keygate/internal/indexing/kafka"
	jwttoken "keygate/internal/jwt_token"
	"keygate/internal/platform/config"
	"keygate/internal/platform/redis"
	httptransport "keygate/internal/transport/http"
)

type app struct {
	resolver    *resolver.Resolver
	queue       *indexing.Queue
	retention   *indexing.RetentionScheduler
	failureSink *kafka.Sink
	checks      map[string]httptransport.HealthCheck
	closers     []func() error
}

func (a *app) close(log *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("failed to close resource", "error", err)
		}
	}
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{checks: map[string]httptransport.HealthCheck{}}

	store, err := a.buildKeyStore(ctx, cfg, log, reg)
	if err != nil {
		a.close(log)
		return nil, err
	}
	if a.resolver, err = buildResolver(cfg, store, log, reg); err != nil {
		a.close(log)
		return nil, err
	}
	if err := a.buildIndexing(ctx, cfg, log, reg); err != nil {
		a.close(log)
		return nil, err
	}
	return a, nil
}

// buildKeyStore picks PostgreSQL when DATABASE_URL is set, otherwise the
// in-memory store seeded from APIKEY_SEED_FILE. PostgreSQL lookups are cached
// in Redis when configured, else in an in-process LRU.
func (a *app) buildKeyStore(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (ports.KeyStore, error) {
	if cfg.Database.URL == "" {
		memory := apikeystore.NewInMemoryStore()
		if cfg.APIKeys.SeedFile != "" {
			n, err := apikeystore.LoadSeedFile(ctx, memory, cfg.APIKeys.SeedFile)
			if err != nil {
				return nil, err
			}
			log.Info("loaded api key seed", "keys", n, "file", cfg.APIKeys.SeedFile)
		} else {
			log.Warn("no api key store configured, API key authentication will match nothing")
		}
		return memory, nil
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	a.checks["postgres"] = db.PingContext

	pg := apikeystore.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	if cfg.APIKeys.SeedFile != "" {
		log.Warn("APIKEY_SEED_FILE ignored when DATABASE_URL is set")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		a.checks["redis"] = rdb.Health
		if cfg.APIKeys.CacheTTL > 0 {
			return apikeystore.NewRedisCache(pg, rdb.Client, cfg.APIKeys.CacheTTL,
				apikeystore.WithRedisLogger(log),
				apikeystore.WithRedisMetrics(apikeystore.NewCacheMetrics(reg)),
			)
		}
		return pg, nil
	}
	if cfg.APIKeys.CacheTTL > 0 && cfg.APIKeys.CacheSize > 0 {
		return apikeystore.NewLRUCache(pg, cfg.APIKeys.CacheSize, cfg.APIKeys.CacheTTL,
			apikeystore.WithLRUMetrics(apikeystore.NewCacheMetrics(reg)),
		)
	}
	return pg, nil
}

func buildResolver(cfg config.Config, store ports.KeyStore, log *slog.Logger, reg prometheus.Registerer) (*resolver.Resolver, error) {
	apiKeyAuth, err := apikey.New(store, apikey.WithLogger(log))
	if err != nil {
		return nil, err
	}
	verifier, err := jwttoken.NewVerifier(cfg.Auth.JWTSigningKey,
		jwttoken.WithIssuer(cfg.Auth.TokenIssuer),
		jwttoken.WithLeeway(cfg.Auth.TokenLeeway),
	)
	if err != nil {
		return nil, err
	}
	tokenAuth, err := token.New(verifier, cfg.Auth.IssuerDomain, token.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return resolver.New(apiKeyAuth, tokenAuth,
		resolver.WithLogger(log),
		resolver.WithMetrics(resolver.NewMetrics(reg)),
	)
}

// buildIndexing creates the index queue. Without SEARCH_NODE the queue is
// built disabled so callers need no nil checks.
func (a *app) buildIndexing(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) error {
	var backend indexing.Backend
	if cfg.Search.Node != "" {
		es, err := elasticsearch.New(elasticsearch.Config{
			Node:     cfg.Search.Node,
			Username: cfg.Search.Username,
			Password: cfg.Search.Password,
			APIKey:   cfg.Search.APIKey,
		})
		if err != nil {
			return err
		}
		backend = es
	}

	sinks := indexing.MultiSink{indexing.NewLogSink(log)}
	if backend != nil && len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.IndexFailuresTopic, kafka.WithLogger(log))
		if err != nil {
			return err
		}
		a.failureSink = sink
		sinks = append(sinks, sink)
	}

	a.queue = indexing.New(backend,
		indexing.WithLogger(log),
		indexing.WithSink(sinks),
		indexing.WithMetrics(indexing.NewMetrics(reg)),
		indexing.WithRetries(cfg.Search.Retries),
		indexing.WithBaseDelay(cfg.Search.RetryBaseDelay),
		indexing.WithMaxPending(cfg.Search.MaxPending),
	)

	if backend != nil && cfg.Search.RetentionDays > 0 && cfg.Search.AuthEventsIndex != "" {
		scheduler, err := indexing.NewRetentionScheduler(a.queue, indexing.RetentionPolicy{
			Index:    cfg.Search.AuthEventsIndex,
			Days:     cfg.Search.RetentionDays,
			Schedule: cfg.Search.RetentionSchedule,
		}, log)
		if err != nil {
			return err
		}
		a.retention = scheduler
	}
	return nil
}
