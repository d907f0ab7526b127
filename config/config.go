// Package config loads auditor settings from a YAML file, .env files and
// environment variables, in that order of precedence (lowest first).
package config

import (
	"time"

	"github.com/seo-optimizer/auditor/cache"
	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/linkaudit"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/oracle"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Audit       AuditConfig       `yaml:"audit"`
	Competitor  competitor.Config `yaml:"competitor"`
	Links       linkaudit.Config  `yaml:"links"`
	Cache       CacheConfig       `yaml:"cache"`
	RankHistory RankHistoryConfig `yaml:"rank_history"`
	Oracle      oracle.Config     `yaml:"oracle"`
	Logging     logging.Config    `yaml:"logging"`
	Stats       StatsConfig       `yaml:"stats"`
	Monitor     MonitorConfig     `yaml:"monitor"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	Mode            string        `yaml:"mode" env:"GIN_MODE"`
	RateLimit       float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst       int           `yaml:"rate_burst" env:"RATE_BURST"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"CORS_ORIGINS"`
}

type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT"`
	UserAgent         string        `yaml:"user_agent" env:"FETCH_USER_AGENT"`
	MaxRedirects      int           `yaml:"max_redirects"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"FETCH_RPS"`
}

// Fetcher converts the section to fetcher settings
func (f FetchConfig) Fetcher() fetcher.Config {
	return fetcher.Config{
		Timeout:           f.Timeout,
		UserAgent:         f.UserAgent,
		MaxRedirects:      f.MaxRedirects,
		MaxBodyBytes:      f.MaxBodyBytes,
		RequestsPerSecond: f.RequestsPerSecond,
	}
}

type AuditConfig struct {
	// Extractor is "pattern" or "dom"
	Extractor      string   `yaml:"extractor" env:"AUDIT_EXTRACTOR"`
	KeywordLimit   int      `yaml:"keyword_limit"`
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

type CacheConfig struct {
	// Backend is "memory", "redis" or "none"
	Backend         string            `yaml:"backend" env:"CACHE_BACKEND"`
	TTL             time.Duration     `yaml:"ttl" env:"CACHE_TTL"`
	MaxEntries      int               `yaml:"max_entries"`
	CleanupInterval time.Duration     `yaml:"cleanup_interval"`
	Redis           cache.RedisConfig `yaml:"redis"`
}

type RankHistoryConfig struct {
	// Driver is "memory", "postgres" or "sqlite3"
	Driver string `yaml:"driver" env:"RANK_HISTORY_DRIVER"`
	DSN    string `yaml:"dsn" env:"RANK_HISTORY_DSN"`
}

type StatsConfig struct {
	DataDir      string `yaml:"data_dir" env:"STATS_DIR"`
	RetainMonths int    `yaml:"retain_months"`
}

type MonitorConfig struct {
	Enabled         bool     `yaml:"enabled" env:"MONITOR_ENABLED"`
	Schedule        string   `yaml:"schedule" env:"MONITOR_SCHEDULE"`
	URLs            []string `yaml:"urls" env:"MONITOR_URLS"`
	IncludeKeywords bool     `yaml:"include_keywords"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8082,
			Mode:            "release",
			RateLimit:       2,
			RateBurst:       5,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Fetch: FetchConfig{
			Timeout:      fetcher.DefaultTimeout,
			UserAgent:    fetcher.DefaultUserAgent,
			MaxRedirects: fetcher.DefaultMaxRedirects,
			MaxBodyBytes: fetcher.DefaultMaxBodyBytes,
		},
		Audit: AuditConfig{
			Extractor:    "pattern",
			KeywordLimit: 10,
		},
		Competitor: competitor.Config{
			Concurrency: 3,
			TaskTimeout: 15 * time.Second,
			TopKeywords: 20,
		},
		Links: linkaudit.Config{
			MaxLinks:     50,
			Concurrency:  10,
			ProbeTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             30 * time.Minute,
			MaxEntries:      1000,
			CleanupInterval: 5 * time.Minute,
			Redis:           cache.RedisConfig{Address: "localhost:6379", Prefix: "seo-auditor:"},
		},
		RankHistory: RankHistoryConfig{Driver: "memory"},
		Oracle:      oracle.Config{Provider: "none"},
		Logging:     logging.Config{Level: "info"},
		Stats:       StatsConfig{DataDir: "data", RetainMonths: 12},
		Monitor:     MonitorConfig{Schedule: "@every 6h"},
	}
}
