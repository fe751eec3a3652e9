// Package config defines the configuration structures of the RInChI toolkit.
// No I/O lives here; loading is in loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// EngineConfig selects the molecular-structure identifier engine.
type EngineConfig struct {
	// Kind is "lexical" (native, no structure perception) or "command"
	// (external InChI program).
	Kind    string        `mapstructure:"kind"`
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APIKeys, when set, are required on /api routes.
	APIKeys     []string `mapstructure:"api_keys"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// CacheConfig selects the key/decomposition cache backend.
type CacheConfig struct {
	// Backend is "redis", "badger" or "none".
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// BadgerConfig holds the embedded cache location.
type BadgerConfig struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

// PostgresConfig holds reaction registry connection parameters.
type PostgresConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// DSN returns the postgres:// URL for the configured database. The
// password is escaped.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   p.DBName,
	}
	q := u.Query()
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	if p.StatementTimeout > 0 {
		q.Set("statement_timeout", strconv.FormatInt(p.StatementTimeout.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// KafkaConfig holds job queue parameters.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	JobTopic        string        `mapstructure:"job_topic"`
	ResultTopic     string        `mapstructure:"result_topic"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
}

// MinIOConfig holds object storage parameters for reaction files.
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Region       string `mapstructure:"region"`
	InputBucket  string `mapstructure:"input_bucket"`
	OutputBucket string `mapstructure:"output_bucket"`
}

// Neo4jConfig holds reaction network connection parameters.
type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// WorkerConfig holds batch worker tunables.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	HealthPort  int           `mapstructure:"health_port"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration.
type Config struct {
	Engine   EngineConfig      `mapstructure:"engine"`
	Log      logging.LogConfig `mapstructure:"log"`
	Server   ServerConfig      `mapstructure:"server"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Cache    CacheConfig       `mapstructure:"cache"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Badger   BadgerConfig      `mapstructure:"badger"`
	Postgres PostgresConfig    `mapstructure:"postgres"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Neo4j    Neo4jConfig       `mapstructure:"neo4j"`
	Worker   WorkerConfig      `mapstructure:"worker"`
}

// Validate checks cross-field constraints. It collects every problem instead
// of stopping at the first one.
func (c *Config) Validate() error {
	var problems []string

	switch c.Engine.Kind {
	case EngineLexical:
	case EngineCommand:
		if c.Engine.Command == "" {
			problems = append(problems, "engine.command is required when engine.kind is \"command\"")
		}
	default:
		problems = append(problems, fmt.Sprintf("engine.kind must be %q or %q, got %q", EngineLexical, EngineCommand, c.Engine.Kind))
	}

	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		problems = append(problems, fmt.Sprintf("log.level %q is not a known level", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		problems = append(problems, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}

	if c.Server.RateLimit < 0 {
		problems = append(problems, "server.rate_limit must not be negative")
	}

	switch c.Cache.Backend {
	case CacheNone:
	case CacheRedis:
		if c.Redis.Addr == "" {
			problems = append(problems, "redis.addr is required for the redis cache backend")
		}
	case CacheBadger:
		if c.Badger.Dir == "" && !c.Badger.InMemory {
			problems = append(problems, "badger.dir is required unless badger.in_memory is set")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.backend must be redis, badger or none, got %q", c.Cache.Backend))
	}

	if c.Worker.Concurrency < 1 {
		problems = append(problems, "worker.concurrency must be at least 1")
	}
	if c.Kafka.MaxRetries < 0 {
		problems = append(problems, "kafka.max_retries must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
