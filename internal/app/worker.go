package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/IUPAC-InChI/RInChI/internal/application/worker"
	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres/repositories"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/redis"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/messaging/kafka"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/interfaces/http/handlers"
)

// lockMargin keeps a job lock alive past the job timeout.
const lockMargin = time.Minute

// WorkerOptions tune RunWorker.
type WorkerOptions struct {
	Version string
	// Concurrency overrides worker.concurrency when positive.
	Concurrency int
}

// RunWorker consumes job requests until ctx is cancelled. Jobs are locked
// in Redis when redis.addr is set.
func RunWorker(ctx context.Context, cfg *config.Config, logger logging.Logger, opts WorkerOptions) error {
	engine, err := NewEngine(cfg.Engine, logger)
	if err != nil {
		return err
	}
	infra, err := Open(ctx, cfg, logger, Needs{Postgres: true, Storage: true, Kafka: true, Redis: cfg.Redis.Addr != ""})
	if err != nil {
		return err
	}
	defer infra.Close()
	infra.EnsureTopics(ctx, cfg.Kafka)

	svc := NewService(cfg, engine, infra, logger)
	reg, err := newRegistry(ctx, svc, infra, logger)
	if err != nil {
		return err
	}

	popts := []worker.ProcessorOption{
		worker.WithProcessorLogger(logger.Named("processor")),
		worker.WithProcessorMetrics(infra.Metrics),
	}
	if infra.Redis != nil {
		lock := worker.NewRedisJobLock(redis.NewLocker(infra.Redis), cfg.Worker.JobTimeout+lockMargin, logger)
		popts = append(popts, worker.WithJobLock(lock))
	}
	processor := worker.NewProcessor(
		worker.ProcessorConfig{ResultTopic: cfg.Kafka.ResultTopic, JobTimeout: cfg.Worker.JobTimeout},
		repositories.NewJobRepository(infra.Postgres, logger, infra.Metrics),
		infra.Store, reg, svc, infra.Producer, popts...)

	concurrency := cfg.Worker.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topic:           cfg.Kafka.JobTopic,
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		Concurrency:     concurrency,
		Retry: kafka.RetryConfig{
			MaxRetries:      cfg.Kafka.MaxRetries,
			RetryBackoff:    cfg.Kafka.RetryBackoff,
			DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
		},
	}, processor.Handle, logger.Named("consumer"),
		kafka.WithRetryable(worker.Retryable),
		kafka.WithDeadLetter(infra.Producer),
		kafka.WithConsumerMetrics(infra.Metrics))
	if err != nil {
		return err
	}
	defer consumer.Close()

	health := newHealthServer(cfg, infra, opts.Version)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return infra.Maintain(gctx) })
	g.Go(func() error {
		if err := health.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return health.Shutdown(shutdownCtx)
	})

	logger.Info("worker started",
		logging.String("version", opts.Version),
		logging.String("topic", cfg.Kafka.JobTopic),
		logging.Int("concurrency", concurrency),
		logging.Int("health_port", cfg.Worker.HealthPort))
	err = g.Wait()
	logger.Info("worker stopped")
	return err
}

// newHealthServer serves health checks and metrics on the worker's health port.
func newHealthServer(cfg *config.Config, infra *Infrastructure, version string) *http.Server {
	h := handlers.NewHealthHandler(version, infra.HealthCheckers()...)
	mux := chi.NewRouter()
	mux.Get("/healthz", h.Liveness)
	mux.Get("/readyz", h.Readiness)
	if infra.Collector != nil {
		mux.Method(http.MethodGet, cfg.Metrics.Path, infra.Collector.Handler())
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
