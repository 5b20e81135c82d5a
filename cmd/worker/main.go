// The worker binary consumes citation.job.enqueued events, runs the shallow
// matching phase for each job, and escalates the top matches to deep
// analysis.  It exposes health and metrics endpoints on a side port.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcitation "github.com/turtacn/CiteScope/internal/application/citation"
	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/domain/citation"
	"github.com/turtacn/CiteScope/internal/domain/claim"
	"github.com/turtacn/CiteScope/internal/infrastructure/analysis"
	"github.com/turtacn/CiteScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/CiteScope/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteScope/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CiteScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/CiteScope/internal/infrastructure/workspace"
	"github.com/turtacn/CiteScope/internal/interfaces/http/handlers"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: logger init: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, logger.Named("worker")); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting citation worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency),
	)

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

	producer, err := kafka.NewProducer(cfg.Kafka, "worker", logger)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()

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
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	metrics := prometheus.NewPipelineMetrics(collector)

	jobs := repositories.NewCitationJobRepository(pg.Pool(), logger)
	matches := repositories.NewCitationMatchRepository(pg.Pool(), logger)

	invalidator := appcitation.NewInvalidator(cache, logger)
	matcher := appcitation.NewMatcher(refs, sections, provider, logger).WithMetrics(metrics)
	controller := appcitation.NewJobController(jobs, matches, matcher, claims, locks,
		invalidator, producer, cfg.Pipeline, logger).WithMetrics(metrics)
	escalator := appcitation.NewEscalator(provider, refs, matches, invalidator,
		cfg.Pipeline, logger).WithMetrics(metrics)

	proc := &processor{
		jobs:       jobs,
		matches:    matches,
		claims:     claims,
		controller: controller,
		escalator:  escalator,
		logger:     logger,
	}

	// One group member per concurrency slot; Kafka balances partitions
	// across them.
	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	defer func() {
		for _, c := range consumers {
			c.Close() //nolint:errcheck
		}
	}()
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer, err := kafka.NewConsumer(cfg.Kafka, []string{kafka.TopicJobEnqueued}, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		consumer.Subscribe(kafka.TopicJobEnqueued, proc.handleJobEnqueued)
		if err := consumer.Start(ctx); err != nil {
			consumer.Close() //nolint:errcheck
			return fmt.Errorf("consumer start: %w", err)
		}
		consumers = append(consumers, consumer)
	}

	healthSrv := newHealthServer(cfg.Worker.HealthPort, collector, pg, redisClient)
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown", logging.Err(err))
	}
	return nil
}

// processor handles one enqueued-job event end to end: claim the job, run
// the shallow matching phase, then escalate the survivors.
type processor struct {
	jobs       citation.JobRepository
	matches    citation.MatchRepository
	claims     claim.Source
	controller *appcitation.JobController
	escalator  *appcitation.Escalator
	logger     logging.Logger
}

func (p *processor) handleJobEnqueued(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		// Retrying an unparsable event is pointless; log and drop.
		p.logger.Error("malformed job event", logging.Err(err))
		return nil
	}
	var payload kafka.JobEnqueuedPayload
	if err := env.DecodePayload(&payload); err != nil {
		p.logger.Error("malformed job payload",
			logging.String("event_id", env.EventID), logging.Err(err))
		return nil
	}

	scope := payload.Scope()
	job, err := p.jobs.GetByID(ctx, scope, common.ID(payload.JobID))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeJobNotFound) {
			p.logger.Warn("enqueued job no longer exists",
				logging.String("job_id", payload.JobID))
			return nil
		}
		return err
	}

	if err := p.controller.Run(ctx, job); err != nil {
		// Another group member already claimed it; redelivery after a
		// rebalance lands here.
		if errors.IsCode(err, errors.ErrCodeJobStateInvalid) {
			p.logger.Debug("job already claimed",
				logging.String("job_id", string(job.ID)))
			return nil
		}
		return err
	}

	p.escalate(ctx, scope, job)
	return nil
}

// escalate runs deep analysis on the job's top matches.  Failures here do
// not fail the message: the shallow results are already persisted and the
// API reports the job completed.
func (p *processor) escalate(ctx context.Context, scope common.Scope, job *citation.Job) {
	top, err := p.matches.TopByReference(ctx, scope, job.SearchHistoryID, job.Reference, 0)
	if err != nil {
		p.logger.Error("loading matches for escalation failed",
			logging.String("job_id", string(job.ID)), logging.Err(err))
		return
	}
	if len(top) == 0 {
		return
	}

	cl, err := p.claims.GetClaim(ctx, scope, job.SearchHistoryID)
	if err != nil {
		p.logger.Error("loading claim for escalation failed",
			logging.String("search_history_id", string(job.SearchHistoryID)),
			logging.Err(err))
		return
	}

	if _, err := p.escalator.Escalate(ctx, scope, cl, job.Reference, top, 0); err != nil {
		p.logger.Error("deep analysis escalation failed",
			logging.String("job_id", string(job.ID)),
			logging.String("reference", job.Reference),
			logging.Err(err))
	}
}

func newHealthServer(port int, collector prometheus.MetricsCollector, pg *postgres.Connection, redisClient *redisinfra.Client) *http.Server {
	health := handlers.NewHealthHandler(version,
		&postgresHealth{conn: pg},
		&redisHealth{client: redisClient},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.Liveness)
	mux.HandleFunc("/readyz", health.Readiness)
	mux.Handle("/metrics", collector.Handler())

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

type postgresHealth struct {
	conn *postgres.Connection
}

func (h *postgresHealth) Name() string                    { return "postgres" }
func (h *postgresHealth) Check(ctx context.Context) error { return h.conn.HealthCheck(ctx) }

type redisHealth struct {
	client *redisinfra.Client
}

func (h *redisHealth) Name() string                    { return "redis" }
func (h *redisHealth) Check(ctx context.Context) error { return h.client.Ping(ctx) }

//Personal.AI order the ending
