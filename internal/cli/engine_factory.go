// Package cli wires configuration into a running coach: stores, generation
// backend, metrics and the interactive chat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/internal/config"
	"github.com/aretw0/coach/pkg/adapters/file"
	"github.com/aretw0/coach/pkg/adapters/memory"
	"github.com/aretw0/coach/pkg/adapters/offline"
	"github.com/aretw0/coach/pkg/adapters/openai"
	"github.com/aretw0/coach/pkg/adapters/redis"
	"github.com/aretw0/coach/pkg/adapters/sqlite"
	"github.com/aretw0/coach/pkg/observability"
	"github.com/aretw0/coach/pkg/persistence/middleware"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
)

// App is a fully wired engine plus the resources it owns.
type App struct {
	Engine *coach.Engine
	Store  ports.SessionStore
	// Registry is nil unless metrics are enabled.
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build creates the engine described by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{}

	store, err := app.newStore(ctx, cfg.Store)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = store

	gen, err := newGenerator(cfg.Backend, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	hooks := observability.LogHooks(logger)
	if cfg.Server.Metrics {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := observability.NewMetrics(observability.WithRegisterer(app.Registry))
		hooks = hooks.Merge(m.Hooks())
	}

	opts := []coach.Option{
		coach.WithLogger(logger),
		coach.WithGenerator(gen),
		coach.WithStore(store),
		coach.WithPolicy(cfg.Engine.Policy),
		coach.WithRetryPolicy(cfg.Engine.RetryPolicy),
		coach.WithHelpThreshold(cfg.Engine.HelpThreshold),
		coach.WithLifecycleHooks(hooks),
	}
	if cfg.Engine.SystemPrompt != "" {
		opts = append(opts, coach.WithSystemPrompt(cfg.Engine.SystemPrompt))
	}
	if cfg.Store.Locking {
		client := goredis.NewClient(redisOptions(cfg.Store.Redis))
		app.closers = append(app.closers, client.Close)
		opts = append(opts, coach.WithLocker(redis.NewLocker(client, cfg.Store.Redis.Prefix+":lock:")))
	}

	app.Engine = coach.New(opts...)
	logger.Debug("engine ready",
		"store", cfg.Store.Driver,
		"backend", cfg.Backend.Provider,
		"metrics", cfg.Server.Metrics,
		"locking", cfg.Store.Locking,
	)
	return app, nil
}

func (a *App) newStore(ctx context.Context, cfg config.StoreConfig) (ports.SessionStore, error) {
	var store ports.SessionStore
	switch cfg.Driver {
	case "memory":
		store = memory.NewStore()
	case "file":
		store = file.New(cfg.Path)
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		store = s
	case "redis":
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		s := redis.NewFromClient(goredis.NewClient(redisOptions(cfg.Redis)), opts...)
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, s.Close)
		store = s
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	var mws []middleware.Middleware
	if cfg.MaskPII {
		patterns := cfg.PIIPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		pii, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

func newGenerator(cfg config.BackendConfig, logger *slog.Logger) (ports.Generator, error) {
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithTemperature(cfg.Temperature),
			openai.WithMaxTokens(cfg.MaxTokens),
			openai.WithLogger(logger),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		gen, err := openai.New(cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "offline", "":
		return offline.New(), nil
	}
	return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
}

func redisOptions(cfg config.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
