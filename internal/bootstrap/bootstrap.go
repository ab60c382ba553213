package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/core/engine"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
	"github.com/kirillkom/civil-registry-forms/internal/core/usecase"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/pdfinfo"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/queue/nats"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/reference/neo4jgraph"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/reference/rediscache"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/reference/yamlstore"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/resilience"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.RescoreQueue
	Locations ports.LocationStore

	BindUC    ports.TemplateBinder
	ScoreUC   ports.TemplateScorer
	CompareUC ports.TemplateComparer
	LintUC    ports.TemplateLinter
	RescoreUC *usecase.RescoreTemplateUseCase

	closers []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg), resilience.WithLogger(logger))

	locations, err := app.openLocationStore(ctx, cfg, db, executor, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Locations = locations

	storage, err := localfs.New(cfg.TemplateStoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init template storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.closers = append(app.closers, queue.Close)
	app.Queue = queue

	templates := postgres.NewTemplateRepository(db)
	documents := postgres.NewDocumentRepository(db)
	requirements := postgres.NewRequirementRepository(db)

	resolver := engine.NewLocationResolver(locations, engine.WithResolverLogger(logger))
	binder := engine.NewTemplateBinder(resolver)

	scoreUC := usecase.NewScoreTemplateUseCase(templates, requirements)
	app.BindUC = usecase.NewBindTemplateUseCase(templates, documents, binder)
	app.ScoreUC = scoreUC
	app.CompareUC = usecase.NewCompareTemplatesUseCase(templates, scoreUC)
	app.LintUC = usecase.NewLintTemplateUseCase(templates, storage, pdfinfo.NewCounter(), logger)
	app.RescoreUC = usecase.NewRescoreTemplateUseCase(templates, scoreUC, templates, queue)

	return app, nil
}

// openLocationStore picks the configured reference backend and fronts it with
// the redis cache when REDIS_URL is set.
func (a *App) openLocationStore(
	ctx context.Context,
	cfg config.Config,
	db *sql.DB,
	executor *resilience.Executor,
	logger *slog.Logger,
) (ports.LocationStore, error) {
	var store ports.LocationStore
	switch cfg.LocationBackend {
	case config.LocationBackendPostgres, "":
		store = postgres.NewLocationRepository(db)
	case config.LocationBackendNeo4j:
		graph, err := neo4jgraph.New(ctx, neo4jgraph.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, fmt.Errorf("init neo4j location store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = graph.Close(context.Background()) })
		store = graph
	case config.LocationBackendYAML:
		fixture, err := yamlstore.LoadFile(cfg.LocationFixturePath)
		if err != nil {
			return nil, fmt.Errorf("init yaml location store: %w", err)
		}
		store = fixture
	default:
		return nil, fmt.Errorf("unknown location backend %q", cfg.LocationBackend)
	}

	if cfg.RedisURL == "" {
		logger.Info("location_store_ready", "backend", cfg.LocationBackend, "cache", false)
		return store, nil
	}
	client, err := rediscache.Dial(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init redis location cache: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	logger.Info("location_store_ready", "backend", cfg.LocationBackend, "cache", true)
	return rediscache.New(store, rediscache.NewRedisKV(client), rediscache.Options{
		TTL:                cfg.RedisCacheTTL,
		NegativeTTL:        cfg.RedisNegativeTTL,
		ResilienceExecutor: executor,
		Logger:             logger,
	}), nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	if cfg.ResilienceRetryMaxAttempts > 0 {
		rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	return rc
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
