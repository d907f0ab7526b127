package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every section and joins all problems found
func (c *Config) Validate() error {
	var errs []error
	add := func(field, msg string) {
		errs = append(errs, &ValidationError{Field: field, Message: msg})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		add("server.mode", "must be one of: debug, release, test")
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative")
	}

	switch strings.ToLower(c.Audit.Extractor) {
	case "pattern", "dom":
	default:
		add("audit.extractor", "must be one of: pattern, dom")
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.Redis.Address == "" {
			add("cache.redis.address", "is required for the redis backend")
		}
	default:
		add("cache.backend", "must be one of: memory, redis, none")
	}

	switch c.RankHistory.Driver {
	case "memory":
	case "postgres", "sqlite3":
		if c.RankHistory.DSN == "" {
			add("rank_history.dsn", "is required for "+c.RankHistory.Driver)
		}
	default:
		add("rank_history.driver", "must be one of: memory, postgres, sqlite3")
	}

	switch c.Oracle.Provider {
	case "", "none", "claude", "anthropic", "openai", "gpt":
	default:
		add("oracle.provider", "must be one of: none, claude, openai")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "must be one of: debug, info, warn, error")
	}

	if c.Stats.DataDir == "" {
		add("stats.data_dir", "is required")
	}

	if c.Monitor.Enabled {
		if len(c.Monitor.URLs) == 0 {
			add("monitor.urls", "is required when the monitor is enabled")
		}
		if _, err := cron.ParseStandard(c.Monitor.Schedule); err != nil {
			add("monitor.schedule", err.Error())
		}
	}

	return errors.Join(errs...)
}
