package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/synthex"
	"github.com/aretw0/synthex/internal/config"
	"github.com/aretw0/synthex/pkg/adapters/memory"
	"github.com/aretw0/synthex/pkg/adapters/redis"
	"github.com/aretw0/synthex/pkg/adapters/rxn"
	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/observability"
	"github.com/aretw0/synthex/pkg/persistence/middleware"
	"github.com/aretw0/synthex/pkg/ports"
	"github.com/aretw0/synthex/pkg/session"
)

// App bundles the components every command builds from the configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *synthex.Engine
	Client   *rxn.Client
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	closers []func() error
}

// AppOptions tweaks how NewApp builds the App.
type AppOptions struct {
	// Credential overrides the configured API key (e.g. from --prompt-key).
	Credential domain.Credential
	// Extractor replaces the RXN client. Used by tests.
	Extractor ports.ActionExtractor
	// Redis lets tests hand over an existing store.
	Redis *redis.Store
}

// NewApp wires the engine, the session store and the metrics registry.
func NewApp(cfg *config.Config, logger *slog.Logger, opts AppOptions) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	// 1. Outbound client
	credential := opts.Credential.Or(cfg.Service.APIKey)
	extractor := opts.Extractor
	if extractor == nil {
		client, err := rxn.NewClient(rxn.Config{
			BaseURL:    cfg.Service.BaseURL,
			Path:       cfg.Service.Path,
			AuthScheme: cfg.Service.AuthHeaderScheme(),
			Credential: credential,
			Timeout:    cfg.Service.Timeout,
		}, rxn.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("error initializing RXN client: %w", err)
		}
		app.Client = client
		extractor = client
	}
	if credential.IsZero() {
		logger.Warn("No API key configured; requests fail unless a session provides one",
			"env", config.EnvAPIKey)
	}

	// 2. Metrics
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(app.Registry)
	if err != nil {
		return nil, fmt.Errorf("error registering metrics: %w", err)
	}
	app.Metrics = metrics

	// 3. Engine
	engine, err := synthex.New(
		synthex.WithExtractor(extractor),
		synthex.WithLogger(logger),
		synthex.WithDefaultCredential(credential),
		synthex.WithMaxProcedureBytes(cfg.MaxProcedureBytes),
		synthex.WithLifecycleHooks(observability.LoggingHooks(logger)),
		synthex.WithLifecycleHooks(metrics.Hooks()),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine

	// 4. Sessions
	store, locker, err := app.openStore(opts.Redis)
	if err != nil {
		return nil, err
	}
	store = middleware.Chain(store, middleware.NewInstrumentation(metrics.StoreDuration, logger))
	managerOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(store, managerOpts...)

	return app, nil
}

func (a *App) openStore(existing *redis.Store) (ports.SessionStore, ports.DistributedLocker, error) {
	cfg := a.Config.Store
	switch cfg.Driver {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreRedis:
		store := existing
		if store == nil {
			store = redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
				redis.WithTTL(cfg.SessionTTL),
				redis.WithPrefix(cfg.Redis.Prefix),
			)
			a.closers = append(a.closers, store.Close)
		}
		if err := store.Ping(context.Background()); err != nil {
			return nil, nil, fmt.Errorf("redis unavailable at %s: %w", cfg.Redis.Addr, err)
		}
		a.Logger.Info("Using redis session store", "addr", cfg.Redis.Addr, "prefix", store.Prefix())

		if !cfg.Redis.Lock {
			return store, nil, nil
		}
		return store, redis.NewLocker(store.Client(), store.Prefix()), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Close releases the resources opened by NewApp.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var exit = os.Exit

// Exit closes the App and terminates the process with code. Deferred
// calls do not run after os.Exit, so commands use this instead.
func (a *App) Exit(code int) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("Close failed", "error", err)
	}
	exit(code)
}
