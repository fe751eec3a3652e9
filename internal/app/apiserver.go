package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/IUPAC-InChI/RInChI/internal/application/registry"
	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/application/worker"
	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	neo4jrepo "github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/neo4j/repositories"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres/repositories"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	httpapi "github.com/IUPAC-InChI/RInChI/internal/interfaces/http"
	"github.com/IUPAC-InChI/RInChI/internal/interfaces/http/handlers"
)

// APIServerOptions tune RunAPIServer.
type APIServerOptions struct {
	Version string
	// Stateless serves only the library endpoints and connects to no
	// backend besides the cache.
	Stateless bool
}

// RunAPIServer serves the REST API until ctx is cancelled.
func RunAPIServer(ctx context.Context, cfg *config.Config, logger logging.Logger, opts APIServerOptions) error {
	engine, err := NewEngine(cfg.Engine, logger)
	if err != nil {
		return err
	}
	needs := Needs{Postgres: !opts.Stateless, Storage: !opts.Stateless, Kafka: !opts.Stateless}
	infra, err := Open(ctx, cfg, logger, needs)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc := NewService(cfg, engine, infra, logger)
	rc := httpapi.RouterConfig{
		RInChIHandler: handlers.NewRInChIHandler(svc, logger, cfg.Server.MaxBodySize),
		HealthHandler: handlers.NewHealthHandler(opts.Version, infra.HealthCheckers()...),
		Logger:        logger,
		Metrics:       infra.Metrics,
		MetricsPath:   cfg.Metrics.Path,
	}
	if infra.Collector != nil {
		rc.MetricsHandler = infra.Collector.Handler()
	}

	if !opts.Stateless {
		reg, err := newRegistry(ctx, svc, infra, logger)
		if err != nil {
			return err
		}
		jobs := repositories.NewJobRepository(infra.Postgres, logger, infra.Metrics)
		submitter := worker.NewSubmitter(jobs, infra.Store, infra.Store, infra.Producer, cfg.Kafka.JobTopic, logger.Named("submitter"))
		rc.ReactionHandler = handlers.NewReactionHandler(reg, logger, cfg.Server.MaxBodySize)
		rc.JobHandler = handlers.NewJobHandler(submitter, logger, cfg.Server.MaxBodySize)
		infra.EnsureTopics(ctx, cfg.Kafka)
	}

	srv := httpapi.NewServer(cfg.Server, rc, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return infra.Maintain(gctx) })
	logger.Info("api server started",
		logging.String("version", opts.Version),
		logging.Int("port", cfg.Server.Port),
		logging.Bool("stateless", opts.Stateless))
	return g.Wait()
}

// newRegistry assembles the reaction registry over Postgres and, when
// configured, the Neo4j network.
func newRegistry(ctx context.Context, recorder rinchi.Service, infra *Infrastructure, logger logging.Logger) (registry.Service, error) {
	repo := repositories.NewReactionRepository(infra.Postgres, logger, infra.Metrics)
	var network reaction.Network
	if infra.Neo4j != nil {
		if err := neo4jrepo.EnsureSchema(ctx, infra.Neo4j); err != nil {
			return nil, err
		}
		network = neo4jrepo.NewNetworkRepository(infra.Neo4j, logger, infra.Metrics)
	}
	return registry.NewService(recorder, repo, network, logger.Named("registry")), nil
}
