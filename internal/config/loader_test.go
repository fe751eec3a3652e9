package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
engine:
  kind: command
  command: /usr/local/bin/inchi-1
  timeout: 10s
log:
  level: debug
  format: console
server:
  port: 9090
cache:
  backend: redis
  ttl: 1h
redis:
  addr: "redis:6379"
kafka:
  brokers: ["k1:9092", "k2:9092"]
worker:
  concurrency: 8
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Success(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, EngineCommand, cfg.Engine.Kind)
	assert.Equal(t, "/usr/local/bin/inchi-1", cfg.Engine.Command)
	assert.Equal(t, 10*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	// untouched sections get defaults
	assert.Equal(t, DefaultPostgresPort, cfg.Postgres.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "engine: [unclosed"))
	require.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "engine:\n  kind: quantum\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("RINCHI_SERVER_PORT", "7070")
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RINCHI_CACHE_BACKEND", "badger")
	t.Setenv("RINCHI_BADGER_DIR", "/var/lib/rinchi")
	t.Setenv("RINCHI_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, CacheBadger, cfg.Cache.Backend)
	assert.Equal(t, "/var/lib/rinchi", cfg.Badger.Dir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, EngineLexical, cfg.Engine.Kind)
}

func TestLoadOrDefault_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}
