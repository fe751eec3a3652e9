package config

import (
	"time"

	"github.com/spf13/viper"
)

// Engine kinds.
const (
	EngineLexical = "lexical"
	EngineCommand = "command"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheRedis  = "redis"
	CacheBadger = "badger"
)

const (
	DefaultServerPort = 8080
	DefaultHealthPort = 8081

	DefaultInChICommand = "inchi-1"

	DefaultRedisAddr = "localhost:6379"

	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultPostgresDB   = "rinchi"

	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "rinchi-worker"
	DefaultJobTopic        = "rinchi.job.requested"
	DefaultResultTopic     = "rinchi.job.completed"
	DefaultDeadLetterTopic = "rinchi.job.dead_letter"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultInputBucket   = "rinchi-input"
	DefaultOutputBucket  = "rinchi-output"

	DefaultNeo4jURI = "neo4j://localhost:7687"

	DefaultCachePrefix = "rinchi:"
	DefaultCacheTTL    = 24 * time.Hour

	DefaultMetricsNamespace = "rinchi"
	DefaultMetricsPath      = "/metrics"
)

// Default returns a Config populated only with defaults.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-value fields with defaults. Explicit values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Engine.Kind == "" {
		cfg.Engine.Kind = EngineLexical
	}
	if cfg.Engine.Kind == EngineCommand && cfg.Engine.Command == "" {
		cfg.Engine.Command = DefaultInChICommand
	}
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = 30 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 16 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = max(1, int(cfg.Server.RateLimit*2))
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheNone
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.MaxRetries == 0 {
		cfg.Redis.MaxRetries = 3
	}

	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultPostgresDB
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 25
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Postgres.ConnMaxIdleTime == 0 {
		cfg.Postgres.ConnMaxIdleTime = 5 * time.Minute
	}
	if cfg.Postgres.StatementTimeout == 0 {
		cfg.Postgres.StatementTimeout = 30 * time.Second
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.JobTopic == "" {
		cfg.Kafka.JobTopic = DefaultJobTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultResultTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultDeadLetterTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = time.Second
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 100 * time.Millisecond
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.InputBucket == "" {
		cfg.MinIO.InputBucket = DefaultInputBucket
	}
	if cfg.MinIO.OutputBucket == "" {
		cfg.MinIO.OutputBucket = DefaultOutputBucket
	}

	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = "neo4j"
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 4
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = 5 * time.Minute
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultHealthPort
	}
}

// bindEnvKeys binds every leaf key so RINCHI_* variables resolve on
// Unmarshal even when no config file mentions the key.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"engine.kind", "engine.command", "engine.args", "engine.timeout",
		"log.level", "log.format", "log.output_paths", "log.error_output_paths",
		"server.port", "server.read_timeout", "server.write_timeout", "server.idle_timeout",
		"server.max_body_size", "server.shutdown_timeout", "server.api_keys", "server.cors_origins",
		"server.rate_limit", "server.rate_limit_burst",
		"metrics.enabled", "metrics.namespace", "metrics.path",
		"cache.backend", "cache.ttl", "cache.prefix",
		"redis.addr", "redis.username", "redis.password", "redis.db", "redis.pool_size",
		"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
		"redis.max_retries",
		"badger.dir", "badger.in_memory",
		"postgres.host", "postgres.port", "postgres.user", "postgres.password", "postgres.db_name",
		"postgres.ssl_mode", "postgres.max_open_conns", "postgres.max_idle_conns",
		"postgres.conn_max_lifetime", "postgres.conn_max_idle_time", "postgres.statement_timeout",
		"postgres.auto_migrate",
		"kafka.brokers", "kafka.group_id", "kafka.job_topic", "kafka.result_topic",
		"kafka.dead_letter_topic", "kafka.auto_offset_reset", "kafka.max_retries",
		"kafka.retry_backoff", "kafka.batch_timeout",
		"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.use_ssl", "minio.region",
		"minio.input_bucket", "minio.output_bucket",
		"neo4j.enabled", "neo4j.uri", "neo4j.user", "neo4j.password", "neo4j.database",
		"worker.concurrency", "worker.job_timeout", "worker.health_port",
	} {
		_ = v.BindEnv(key)
	}
}
