package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	path := writeFile(t, "config.yml", `
server:
  port: 9090
fetch:
  timeout: 3s
competitor:
  concurrency: 2
cache:
  backend: none
rank_history:
  driver: sqlite3
  dsn: /tmp/ranks.db
monitor:
  enabled: true
  schedule: "0 */2 * * *"
  urls: [https://acme.test]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2, cfg.Competitor.Concurrency)
	assert.Equal(t, 15*time.Second, cfg.Competitor.TaskTimeout, "unset keys keep defaults")
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, "sqlite3", cfg.RankHistory.Driver)
	assert.Equal(t, []string{"https://acme.test"}, cfg.Monitor.URLs)
	assert.Equal(t, "release", cfg.Server.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PORT", "7000")
	t.Setenv("FETCH_TIMEOUT", "2s")
	t.Setenv("MONITOR_URLS", "https://a.test, https://b.test,")
	t.Setenv("LOG_DEVELOPMENT", "yes")
	t.Setenv("ORACLE_PROVIDER", "openai")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Monitor.URLs)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Address)
}

func TestLoad_MalformedEnvValues(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PORT", "eighty")
	t.Setenv("MONITOR_ENABLED", "maybe")
	t.Setenv("CACHE_TTL", "30")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "MONITOR_ENABLED")
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a,, b ,"))
	assert.Empty(t, splitList(","))
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, "test.env", "STATS_DIR=/var/lib/auditor\nRANK_HISTORY_DRIVER=memory\n")
	t.Setenv("ENV_FILE", envFile)
	t.Cleanup(func() { os.Unsetenv("STATS_DIR"); os.Unsetenv("RANK_HISTORY_DRIVER") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/auditor", cfg.Stats.DataDir)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	_, err := Load(writeFile(t, "bad.yml", "server: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*Config)
	}{
		{name: "port", field: "server.port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "mode", field: "server.mode", mutate: func(c *Config) { c.Server.Mode = "prod" }},
		{name: "extractor", field: "audit.extractor", mutate: func(c *Config) { c.Audit.Extractor = "xpath" }},
		{name: "cache backend", field: "cache.backend", mutate: func(c *Config) { c.Cache.Backend = "disk" }},
		{name: "redis address", field: "cache.redis.address", mutate: func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.Redis.Address = ""
		}},
		{name: "rank dsn", field: "rank_history.dsn", mutate: func(c *Config) { c.RankHistory.Driver = "postgres" }},
		{name: "rank driver", field: "rank_history.driver", mutate: func(c *Config) { c.RankHistory.Driver = "mysql" }},
		{name: "oracle", field: "oracle.provider", mutate: func(c *Config) { c.Oracle.Provider = "bard" }},
		{name: "log level", field: "logging.level", mutate: func(c *Config) { c.Logging.Level = "loud" }},
		{name: "stats dir", field: "stats.data_dir", mutate: func(c *Config) { c.Stats.DataDir = "" }},
		{name: "monitor urls", field: "monitor.urls", mutate: func(c *Config) { c.Monitor.Enabled = true }},
		{name: "monitor cron", field: "monitor.schedule", mutate: func(c *Config) {
			c.Monitor.Enabled = true
			c.Monitor.URLs = []string{"x"}
			c.Monitor.Schedule = "often"
		}},
		{name: "negative limit", field: "server.rate_limit", mutate: func(c *Config) { c.Server.RateLimit = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", Path("config.yml"))
	t.Setenv("CONFIG_PATH", "/etc/auditor.yml")
	assert.Equal(t, "/etc/auditor.yml", Path("config.yml"))
}
