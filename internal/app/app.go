// Package app wires configuration into a running booking-flow service.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"inkbook/internal/booking"
	"inkbook/internal/cache"
	"inkbook/internal/common/config"
	"inkbook/internal/common/database"
	httpclient "inkbook/internal/common/http"
	"inkbook/internal/common/logger"
	"inkbook/internal/common/observability"
	"inkbook/internal/formstore"
	"inkbook/internal/recovery"
	"inkbook/internal/server"
	"inkbook/internal/submission"
	"inkbook/internal/suggestions"
)

// Retry controls how connection attempts are repeated at startup.
type Retry struct {
	Attempts     int
	InitialDelay time.Duration
}

var DefaultRetry = Retry{Attempts: 10, InitialDelay: 2 * time.Second}

// App is the assembled service.
type App struct {
	Server   *server.Server
	Flows    *server.FlowRegistry
	Boundary *recovery.Boundary
	Cache    *cache.Cache
	Store    *formstore.Store

	closers []func() error
	log     *zap.Logger
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// Build connects every configured backend and assembles the HTTP server.
// On error, anything already opened is closed again.
func Build(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, obs *observability.Observability, retry Retry) (a *App, err error) {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	if retry.Attempts <= 0 {
		retry = DefaultRetry
	}
	a = &App{log: zapLog}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()
	log := logger.NewZapAdapter(zapLog)

	backend, err := a.formBackend(ctx, cfg, retry)
	if err != nil {
		return a, err
	}
	a.Store = formstore.New(backend, formstore.Config{
		KeyPrefix: cfg.Storage.KeyPrefix,
		OpTimeout: config.GetDuration(cfg.Storage.OpTimeout),
	}, log)
	zapLog.Info("Form store ready", zap.String("backend", backend.Name()))

	submitter, err := a.submitter(ctx, cfg, retry)
	if err != nil {
		return a, err
	}
	submitter = submission.NewInstrumented(submitter, cfg.Booking.SubmitBackend, obs)

	searcher, err := a.searcher(ctx, cfg, retry)
	if err != nil {
		return a, err
	}

	dirClient := httpclient.NewClient(config.GetDuration(cfg.APIs.Directory.Timeout))
	if cfg.APIs.Directory.APIKey != "" {
		dirClient = dirClient.WithHeader("X-API-Key", cfg.APIs.Directory.APIKey)
	}
	directory := suggestions.NewHTTPDirectory(dirClient, cfg.APIs.Directory.BaseURL)

	a.Cache = cache.New(
		cache.WithName("booking"),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithDefaultTTL(config.GetDuration(cfg.Cache.DefaultTTL)),
		cache.WithLogger(log),
	)
	svc := suggestions.NewService(searcher, directory, a.Cache, suggestions.Config{
		Limit:         cfg.Suggestions.Limit,
		TTL:           config.GetDuration(cfg.Suggestions.TTL),
		SlotTTL:       config.GetDuration(cfg.Suggestions.SlotCacheTTL),
		ProfileTTL:    config.GetDuration(cfg.Suggestions.ProfileTTL),
		RatePerSecond: cfg.Suggestions.RatePerSecond,
		Burst:         cfg.Suggestions.Burst,
	}, log)

	bookingCfg := booking.Config{
		AutosaveDelay:  config.GetDuration(cfg.Booking.AutosaveDelay),
		SubmitTimeout:  config.GetDuration(cfg.Booking.SubmitTimeout),
		MaxReferences:  cfg.Booking.MaxReferences,
		MinDescription: cfg.Booking.MinDescription,
	}
	store := a.Store
	factory := func(opts booking.Options) (*booking.Controller, error) {
		return booking.NewController(bookingCfg, booking.Deps{
			Store:      store,
			Submitter:  submitter,
			Prefetcher: svc,
			Cache:      a.Cache,
			Logger:     log,
		}, opts)
	}
	a.Flows = server.NewFlowRegistry(factory, a.Store, cfg.Storage.SessionPrefix, log)

	a.Boundary = recovery.New(recovery.Config{
		Delay:         config.GetDuration(cfg.Recovery.Delay),
		PurgePrefixes: []string{"booking:", cfg.Storage.SessionPrefix},
	}, log,
		recovery.WithPurgers(a.Flows, a.Store),
		recovery.WithObservability(obs),
		recovery.WithOnTransition(func(from, to recovery.State, message string) {
			zapLog.Info(message, zap.String("from", from.String()), zap.String("to", to.String()))
		}),
	)

	a.Server = server.New(server.Config{
		Address:         cfg.Server.Address,
		ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
		RatePerSecond:   cfg.Server.RatePerSecond,
		RateBurst:       cfg.Server.RateBurst,
	}, server.Deps{
		Flows:       a.Flows,
		Suggestions: svc,
		Cache:       a.Cache,
		Boundary:    a.Boundary,
		Logger:      log,
	})
	return a, nil
}

func (a *App) formBackend(ctx context.Context, cfg *config.Config, retry Retry) (formstore.Backend, error) {
	switch cfg.Storage.Backend {
	case "redis":
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			return nil
		}, retry.Attempts, retry.InitialDelay, a.log, "Redis connection")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		return formstore.NewRedisBackend(rc.Client), nil

	case "sqlite":
		db, err := database.NewSQLite(cfg.Database.SQLite)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		sb, err := formstore.NewSQLiteBackend(ctx, db)
		if err != nil {
			return nil, err
		}
		return sb, nil
	}
	return formstore.NewMemoryBackend(), nil
}

func (a *App) submitter(ctx context.Context, cfg *config.Config, retry Retry) (submission.Submitter, error) {
	if cfg.Booking.SubmitBackend == "postgres" {
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			return nil
		}, retry.Attempts, retry.InitialDelay, a.log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		return submission.NewPostgresSubmitter(pg.DB), nil
	}

	client := httpclient.NewClient(config.GetDuration(cfg.APIs.Booking.Timeout))
	if cfg.APIs.Booking.APIKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+cfg.APIs.Booking.APIKey)
	}
	return submission.NewHTTPSubmitter(client, cfg.APIs.Booking.BaseURL), nil
}

func (a *App) searcher(ctx context.Context, cfg *config.Config, retry Retry) (*suggestions.ElasticSearcher, error) {
	var es *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping(ctx)
	}, retry.Attempts, retry.InitialDelay, a.log, "Elasticsearch connection")
	if err != nil {
		return nil, err
	}
	return suggestions.NewElasticSearcher(es.Client, suggestions.ElasticConfig{
		ArtistIndex: cfg.Database.Elasticsearch.ArtistIndex,
		StudioIndex: cfg.Database.Elasticsearch.StudioIndex,
		Timeout:     config.GetDuration(cfg.Database.Elasticsearch.QueryTimeout),
	}), nil
}

// Shutdown stops the server, saves open flows and releases connections.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	a.Close()
	return err
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
