package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/unpuzzle-ai/usagekit/pkg/assistant"
	"github.com/unpuzzle-ai/usagekit/pkg/config"
	"github.com/unpuzzle-ai/usagekit/pkg/httpserver"
	"github.com/unpuzzle-ai/usagekit/pkg/logger"
	"github.com/unpuzzle-ai/usagekit/pkg/pg"
	"github.com/unpuzzle-ai/usagekit/pkg/plan"
	"github.com/unpuzzle-ai/usagekit/pkg/redis"
	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"unpuzzle-usage"`

	// FixtureMode selects the deterministic local responder instead of the
	// live AI backend. Resolved once here and injected; never read again.
	FixtureMode bool   `env:"ASSISTANT_FIXTURE_MODE" envDefault:"true"`
	BackendURL  string `env:"ASSISTANT_BACKEND_URL" envDefault:"http://localhost:9000"`

	// PlanFile optionally points at a YAML plan catalog. Empty uses the
	// built-in default plans.
	PlanFile string `env:"PLAN_FILE"`

	// UsageStore selects the counter backend: memory, redis or postgres.
	UsageStore     string `env:"USAGE_STORE" envDefault:"memory"`
	MigrateOnStart bool   `env:"PG_MIGRATE_ON_START" envDefault:"true"`
}

func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(logCfg, logger.WithService(cfg.ServiceName))
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	catalog, err := buildCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	store, healthchecks, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	guard, err := throttle.NewService(catalog, store, throttle.WithLogger(log))
	if err != nil {
		return err
	}

	var responder assistant.Responder
	if cfg.FixtureMode {
		responder = assistant.NewFixtureResponder()
		log.InfoContext(ctx, "assistant running in fixture mode")
	} else {
		responder = assistant.NewRemoteResponder(cfg.BackendURL)
		log.InfoContext(ctx, "assistant running in live mode", "backend_url", cfg.BackendURL)
	}

	tutor, err := assistant.NewService(guard, responder, assistant.WithLogger(log))
	if err != nil {
		return err
	}

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, newRouter(log, guard, tutor, responder, healthchecks))
}

func buildCatalog(ctx context.Context, cfg appConfig) (*plan.Catalog, error) {
	var src plan.Source
	if cfg.PlanFile != "" {
		src = plan.NewYAMLSource(cfg.PlanFile)
	} else {
		src = plan.NewInMemSource(plan.DefaultPlans())
	}
	return plan.NewCatalog(ctx, src)
}

// buildStore wires the configured counter backend. The returned cleanup
// releases backend resources at shutdown.
func buildStore(ctx context.Context, cfg appConfig, log *slog.Logger) (throttle.Store, []healthcheck, func(), error) {
	switch cfg.UsageStore {
	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)

		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup := func() { _ = client.Close() }
		return throttle.NewRedisStore(client), []healthcheck{redis.Healthcheck(client)}, cleanup, nil

	case "postgres":
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)

		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.MigrateOnStart {
			if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
		}
		check := func(ctx context.Context) error { return pool.Ping(ctx) }
		return throttle.NewPGStore(pool), []healthcheck{check}, pool.Close, nil

	default:
		ms := throttle.NewMemoryStore()
		return ms, nil, ms.Close, nil
	}
}
