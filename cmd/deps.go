package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/cache"
	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/config"
	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/keywords"
	"github.com/seo-optimizer/auditor/linkaudit"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
	"github.com/seo-optimizer/auditor/oracle"
	"github.com/seo-optimizer/auditor/rankhistory"
	"github.com/seo-optimizer/auditor/stats"
)

// deps wires every service from the configuration
type deps struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	stats   *stats.Storage
	cache   cache.Cache

	fetcher    *fetcher.Fetcher
	analyzer   *analyzer.Analyzer
	comparator *competitor.Comparator
	links      *linkaudit.Auditor
	ranks      *rankhistory.Tracker

	closers []func() error
}

func newDeps(cfg *config.Config, logger logging.Logger) (*deps, error) {
	d := &deps{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.metrics = metrics.New(reg)

	st, err := stats.NewStorage(cfg.Stats.DataDir, logger)
	if err != nil {
		return nil, err
	}
	st.Cleanup(cfg.Stats.RetainMonths)
	d.stats = st
	d.closers = append(d.closers, st.Shutdown)

	if err := d.openCache(); err != nil {
		return nil, err
	}

	suggester, err := oracle.NewSuggester(cfg.Oracle)
	if err != nil {
		logger.Warn("Suggestion oracle disabled", logging.Err(err))
	}

	ext := extractor.New(cfg.Audit.Extractor)
	kw := keywords.NewExtractor(keywords.DefaultStopwords().With(cfg.Audit.ExtraStopwords...))
	transport := fetcher.NewTransport()
	d.fetcher = fetcher.New(cfg.Fetch.Fetcher(), transport)

	opts := []analyzer.Option{
		analyzer.WithExtractor(ext),
		analyzer.WithKeywords(kw),
		analyzer.WithStats(st),
		analyzer.WithMetrics(d.metrics),
		analyzer.WithLogger(logger.With(logging.String("component", "analyzer"))),
	}
	if suggester != nil {
		opts = append(opts, analyzer.WithSuggester(suggester))
	}
	if d.cache != nil {
		opts = append(opts, analyzer.WithCache(d.cache))
	}
	d.analyzer = analyzer.New(d.fetcher, opts...)

	d.comparator = competitor.New(d.fetcher,
		competitor.WithExtractor(ext),
		competitor.WithKeywords(kw),
		competitor.WithConfig(cfg.Competitor),
		competitor.WithMetrics(d.metrics),
		competitor.WithStats(st),
		competitor.WithLogger(logger.With(logging.String("component", "competitor"))))

	linkCfg := cfg.Links
	if linkCfg.UserAgent == "" {
		linkCfg.UserAgent = d.fetcher.UserAgent()
	}
	linkOpts := []linkaudit.Option{
		linkaudit.WithExtractor(ext),
		linkaudit.WithConfig(linkCfg),
		linkaudit.WithMetrics(d.metrics),
		linkaudit.WithStats(st),
		linkaudit.WithLogger(logger.With(logging.String("component", "linkaudit"))),
	}
	if d.cache != nil {
		linkOpts = append(linkOpts, linkaudit.WithCache(d.cache))
	}
	d.links = linkaudit.New(d.fetcher, d.fetcher.Transport(), linkOpts...)

	ok = true
	return d, nil
}

func (d *deps) openCache() error {
	switch d.cfg.Cache.Backend {
	case "redis":
		rc := d.cfg.Cache.Redis
		if rc.TTL == 0 {
			rc.TTL = d.cfg.Cache.TTL
		}
		c, err := cache.NewRedis(rc)
		if err != nil {
			return fmt.Errorf("open redis cache: %w", err)
		}
		d.cache = c
	case "memory":
		d.cache = cache.NewMemory(cache.MemoryOptions{
			TTL:             d.cfg.Cache.TTL,
			MaxEntries:      d.cfg.Cache.MaxEntries,
			CleanupInterval: d.cfg.Cache.CleanupInterval,
		})
	default:
		return nil
	}
	d.closers = append(d.closers, d.cache.Close)
	return nil
}

// openRanks builds the rank tracker. persistent forces an on-disk store when
// the configured driver is memory, so separate CLI runs share history.
func (d *deps) openRanks(ctx context.Context, persistent bool) error {
	driver, dsn := d.cfg.RankHistory.Driver, d.cfg.RankHistory.DSN
	if driver == "memory" && persistent {
		driver, dsn = "sqlite3", filepath.Join(d.cfg.Stats.DataDir, "rank_history.db")
		d.logger.Debug("Using SQLite rank history", logging.String("path", dsn))
	}
	if driver == "memory" {
		d.ranks = rankhistory.NewTracker(rankhistory.NewMemoryStore())
		return nil
	}

	store, err := rankhistory.Open(driver, dsn)
	if err != nil {
		return err
	}
	d.closers = append(d.closers, store.Close)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	d.ranks = rankhistory.NewTracker(store)
	return nil
}

// Close releases resources in reverse order of acquisition
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("Close failed", logging.Err(err))
		}
	}
	d.closers = nil
}
