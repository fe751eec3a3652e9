package app

import (
	"context"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/badger"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/neo4j"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/redis"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/messaging/kafka"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/storage/minio"
	"github.com/IUPAC-InChI/RInChI/internal/interfaces/http/handlers"
)

const badgerGCInterval = 10 * time.Minute

// Needs selects the backends a process connects to. The cache backend and
// Neo4j follow the configuration.
type Needs struct {
	Postgres bool
	Storage  bool
	Kafka    bool
	Redis    bool
}

// Infrastructure holds the open backends of one process. Unused backends
// are nil.
type Infrastructure struct {
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Cache    rinchi.Cache
	Redis    *redis.Client
	Badger   *badger.Cache
	Postgres *postgres.Connection
	Neo4j    *neo4j.Driver
	MinIO    *minio.Client
	Store    *minio.Store
	Producer *kafka.Producer

	logger  logging.Logger
	closers []func() error
}

// Open connects the backends in needs. Backends already opened are closed
// again when a later one fails.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger, needs Needs) (_ *Infrastructure, err error) {
	infra := &Infrastructure{logger: logger, Metrics: prometheus.NewNopMetrics()}
	defer func() {
		if err != nil {
			infra.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, err
		}
		infra.Collector = c
		infra.Metrics = prometheus.NewAppMetrics(c)
	}

	if needs.Redis || cfg.Cache.Backend == config.CacheRedis {
		rc, err := redis.NewClient(ctx, cfg.Redis, logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		infra.Redis = rc
		infra.closers = append(infra.closers, rc.Close)
	}

	switch cfg.Cache.Backend {
	case config.CacheRedis:
		infra.Cache = redis.NewCache(infra.Redis, logger.Named("cache"),
			redis.WithPrefix(cfg.Cache.Prefix), redis.WithDefaultTTL(cfg.Cache.TTL), redis.WithJitter(true))
	case config.CacheBadger:
		bc, err := badger.Open(cfg.Badger, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, err
		}
		infra.Badger = bc
		infra.Cache = bc
		infra.closers = append(infra.closers, bc.Close)
	}

	if needs.Postgres {
		conn, err := postgres.NewConnection(ctx, cfg.Postgres, logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		infra.Postgres = conn
		infra.closers = append(infra.closers, conn.Close)
		if cfg.Postgres.AutoMigrate {
			if err := conn.Migrate(); err != nil {
				return nil, err
			}
		}
	}

	if needs.Postgres && cfg.Neo4j.Enabled {
		d, err := neo4j.NewDriver(ctx, cfg.Neo4j, logger.Named("neo4j"))
		if err != nil {
			return nil, err
		}
		infra.Neo4j = d
		infra.closers = append(infra.closers, func() error { return d.Close(context.Background()) })
	}

	if needs.Storage {
		mc, err := minio.NewClient(ctx, cfg.MinIO, logger.Named("minio"))
		if err != nil {
			return nil, err
		}
		infra.MinIO = mc
		infra.Store = minio.NewStore(mc, infra.Metrics)
	}

	if needs.Kafka {
		p, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Acks:         "all",
			MaxRetries:   cfg.Kafka.MaxRetries,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger.Named("producer"))
		if err != nil {
			return nil, err
		}
		infra.Producer = p
		infra.closers = append(infra.closers, p.Close)
	}
	return infra, nil
}

// EnsureTopics creates the job topics. Failures are logged; brokers with
// auto-creation or pre-provisioned topics work without it.
func (i *Infrastructure) EnsureTopics(ctx context.Context, cfg config.KafkaConfig) {
	tm, err := kafka.NewTopicManager(cfg.Brokers, i.logger)
	if err != nil {
		i.logger.Warn("topic manager unavailable", logging.Error(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureTopics(ctx, kafka.JobTopics(cfg)); err != nil {
		i.logger.Warn("failed to ensure job topics", logging.Error(err))
	}
}

// HealthCheckers lists a readiness check per open backend.
func (i *Infrastructure) HealthCheckers() []handlers.HealthChecker {
	var cs []handlers.HealthChecker
	if i.Postgres != nil {
		cs = append(cs, handlers.CheckFunc{Label: "postgres", Fn: i.Postgres.HealthCheck})
	}
	if i.Redis != nil {
		cs = append(cs, handlers.CheckFunc{Label: "redis", Fn: i.Redis.Ping})
	}
	if i.Badger != nil {
		cs = append(cs, handlers.CheckFunc{Label: "badger", Fn: i.Badger.Ping})
	}
	if i.Neo4j != nil {
		cs = append(cs, handlers.CheckFunc{Label: "neo4j", Fn: i.Neo4j.HealthCheck})
	}
	if i.MinIO != nil {
		cs = append(cs, handlers.CheckFunc{Label: "minio", Fn: i.MinIO.HealthCheck})
	}
	return cs
}

// Maintain runs periodic housekeeping until ctx ends.
func (i *Infrastructure) Maintain(ctx context.Context) error {
	if i.Badger == nil {
		return nil
	}
	t := time.NewTicker(badgerGCInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := i.Badger.RunGC(); err != nil {
				i.logger.Warn("badger value log GC failed", logging.Error(err))
			}
		}
	}
}

// Close closes the backends in reverse opening order.
func (i *Infrastructure) Close() {
	for k := len(i.closers) - 1; k >= 0; k-- {
		if err := i.closers[k](); err != nil {
			i.logger.Warn("close failed", logging.Error(err))
		}
	}
	i.closers = nil
}
