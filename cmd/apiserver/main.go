// The apiserver binary serves the citation-analysis HTTP API: job enqueue
// and reads, top-match queries, combined analyses, and workspace cache
// invalidation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/CiteScope/internal/application/citation"
	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/infrastructure/analysis"
	"github.com/turtacn/CiteScope/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/CiteScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/CiteScope/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteScope/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CiteScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/CiteScope/internal/infrastructure/workspace"
	httpiface "github.com/turtacn/CiteScope/internal/interfaces/http"
	"github.com/turtacn/CiteScope/internal/interfaces/http/handlers"
	"github.com/turtacn/CiteScope/internal/interfaces/http/middleware"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	migrateUp := flag.Bool("migrate", false, "apply pending database migrations before serving")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: logger init: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, logger.Named("apiserver"), *migrateUp); err != nil {
		logger.Error("apiserver exited", logging.Err(err))
		os.Exit(1)
	}
}

// loadConfig reads the YAML file when it exists and falls back to pure
// environment configuration, the container deployment mode.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger, migrateUp bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting citation api server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
	)

	if migrateUp {
		if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	// Infrastructure.
	pg, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	redisClient, err := redisinfra.NewClient(&cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	cache := redisinfra.NewRedisCache(redisClient, logger,
		redisinfra.WithPrefix(cfg.Redis.KeyPrefix),
		redisinfra.WithDefaultTTL(cfg.Redis.DefaultTTL),
	)
	locks := redisinfra.NewLockFactory(redisClient, cfg.Redis.KeyPrefix, logger)

	producer, err := kafka.NewProducer(cfg.Kafka, "apiserver", logger)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()

	if topicMgr, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger); err != nil {
		logger.Warn("topic manager unavailable, assuming topics exist", logging.Err(err))
	} else {
		if err := topicMgr.EnsureDefaultTopics(ctx); err != nil {
			logger.Warn("failed to ensure kafka topics", logging.Err(err))
		}
		topicMgr.Close() //nolint:errcheck
	}

	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		return fmt.Errorf("opensearch: %w", err)
	}
	sections := opensearch.NewSectionIndex(osClient, cfg.OpenSearch.IndexPrefix, cfg.OpenSearch.SectionTopK, logger)

	minioClient, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	refs := minio.NewDocumentStore(minioClient, logger)

	provider := analysis.NewClient(cfg.Analysis, logger)
	claims := workspace.NewClient(cfg.Workspace, logger)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "citescope",
		Subsystem:            "apiserver",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	metrics := prometheus.NewPipelineMetrics(collector)

	// Repositories and application services.
	jobs := repositories.NewCitationJobRepository(pg.Pool(), logger)
	matches := repositories.NewCitationMatchRepository(pg.Pool(), logger)
	combined := repositories.NewCombinedAnalysisRepository(pg.Pool(), logger)

	invalidator := citation.NewInvalidator(cache, logger)
	matcher := citation.NewMatcher(refs, sections, provider, logger).WithMetrics(metrics)
	controller := citation.NewJobController(jobs, matches, matcher, claims, locks,
		invalidator, producer, cfg.Pipeline, logger).WithMetrics(metrics)
	aggregator := citation.NewAggregator(combined, matches, invalidator, producer, logger).WithMetrics(metrics)
	reader := citation.NewReader(jobs, matches, combined, cache, cfg.Pipeline, logger).WithMetrics(metrics)

	// HTTP surface.
	routerCfg := httpiface.RouterConfig{
		CitationHandler:  handlers.NewCitationHandler(controller, aggregator, reader, logger),
		WorkspaceHandler: handlers.NewWorkspaceHandler(invalidator, logger),
		HealthHandler: handlers.NewHealthHandler(version,
			&postgresHealth{conn: pg},
			&redisHealth{client: redisClient},
			&kafkaHealth{brokers: cfg.Kafka.Brokers},
		),
		ScopeMiddleware:     middleware.NewScopeMiddleware(middleware.ScopeConfig{RequireProject: true}, logger),
		CORSMiddleware:      middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()),
		LoggingMiddleware:   middleware.NewLoggingMiddleware(logger, metrics),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(middleware.DefaultRateLimitConfig(), logger),
		MetricsHandler:      collector.Handler(),
	}

	if cfg.Auth.Enabled() {
		var tokens middleware.TokenValidator
		if cfg.Auth.IssuerURL != "" {
			kc, err := keycloak.NewProvider(cfg.Auth, logger)
			if err != nil {
				return fmt.Errorf("keycloak: %w", err)
			}
			tokens = &keycloakTokenValidator{provider: kc}
		}
		var keys middleware.APIKeyValidator
		if len(cfg.Auth.APIKeys) > 0 {
			keys = &staticAPIKeyValidator{keys: cfg.Auth.APIKeys}
		}
		routerCfg.AuthMiddleware = middleware.NewAuthMiddleware(tokens, keys, middleware.AuthConfig{}, logger)
	} else {
		logger.Warn("authentication disabled: no issuer url or api keys configured")
	}

	server := httpiface.NewServer(cfg.Server, httpiface.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if err := server.Stop(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

//Personal.AI order the ending
