// Package analyzer runs the audit pipeline: fetch, extract, evaluate, score,
// and optionally rank keywords and ask the suggestion oracle.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seo-optimizer/auditor/cache"
	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/keywords"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
	"github.com/seo-optimizer/auditor/oracle"
	"github.com/seo-optimizer/auditor/rules"
	"github.com/seo-optimizer/auditor/stats"
)

// PageFetcher retrieves a page snapshot
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Snapshot, error)
}

// Analyzer performs SEO audits. It is safe for concurrent use.
type Analyzer struct {
	fetcher   PageFetcher
	extractor extractor.Extractor
	engine    *rules.Engine
	keywords  *keywords.Extractor
	suggester oracle.Suggester
	cache     cache.Cache
	stats     stats.Recorder
	metrics   *metrics.Metrics
	logger    logging.Logger
	now       func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

func WithExtractor(e extractor.Extractor) Option { return func(a *Analyzer) { a.extractor = e } }
func WithRules(e *rules.Engine) Option           { return func(a *Analyzer) { a.engine = e } }
func WithKeywords(k *keywords.Extractor) Option  { return func(a *Analyzer) { a.keywords = k } }
func WithSuggester(s oracle.Suggester) Option    { return func(a *Analyzer) { a.suggester = s } }
func WithCache(c cache.Cache) Option             { return func(a *Analyzer) { a.cache = c } }
func WithStats(r stats.Recorder) Option          { return func(a *Analyzer) { a.stats = r } }
func WithMetrics(m *metrics.Metrics) Option      { return func(a *Analyzer) { a.metrics = m } }
func WithLogger(l logging.Logger) Option         { return func(a *Analyzer) { a.logger = l } }
func WithClock(now func() time.Time) Option      { return func(a *Analyzer) { a.now = now } }

// New creates an Analyzer. Without options it uses the pattern extractor,
// the default rule table and stopwords, and no cache, stats or oracle.
func New(f PageFetcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:   f,
		extractor: extractor.NewPatternExtractor(),
		engine:    rules.NewEngine(nil),
		keywords:  keywords.NewExtractor(nil),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Extractor returns the structural extractor in use
func (a *Analyzer) Extractor() extractor.Extractor {
	return a.extractor
}

// Keywords returns the keyword extractor in use
func (a *Analyzer) Keywords() *keywords.Extractor {
	return a.keywords
}

func cacheKey(pageURL string, opts Options) string {
	return cache.Key("report", rules.RuleSetVersion, pageURL,
		fmt.Sprintf("kw=%t/%d ai=%t", opts.IncludeKeywords, opts.KeywordLimit, opts.IncludeSuggestions))
}

// Analyze fetches and audits rawURL. A fetch failure is returned as a
// *fetcher.FetchError; optional sections never fail the audit.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	log := a.logger.With(logging.String("url", rawURL))

	pageURL, err := fetcher.NormalizeURL(rawURL)
	if err != nil {
		a.record(stats.Delta{Audits: 1, AuditFailures: 1})
		a.metrics.RecordAudit(metrics.OutcomeFailure, 0)
		return nil, err
	}

	key := cacheKey(pageURL, opts)
	if a.cache != nil && !opts.SkipCache {
		var cached Report
		found, err := a.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("Report cache lookup failed", logging.Err(err))
		}
		if found {
			a.record(stats.Delta{Audits: 1, ReportCacheHits: 1})
			a.metrics.RecordAudit(metrics.OutcomeCached, cached.Score)
			cached.Cached = true
			return &cached, nil
		}
		a.record(stats.Delta{ReportCacheMisses: 1})
	}

	start := a.now()
	snap, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		kind := "error"
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			kind = string(fe.Kind)
		}
		a.metrics.ObserveFetch(kind, a.now().Sub(start))
		a.metrics.RecordAudit(metrics.OutcomeFailure, 0)
		a.record(stats.Delta{Audits: 1, AuditFailures: 1})
		log.Warn("Audit fetch failed", logging.String("kind", kind), logging.Err(err))
		return nil, err
	}
	a.metrics.ObserveFetch("ok", a.now().Sub(start))

	finalURL := snap.FinalURL
	if finalURL == "" {
		finalURL = snap.URL
	}
	report := a.audit(ctx, finalURL, snap.RawHTML, opts)
	report.URL = pageURL
	if finalURL != pageURL {
		report.FinalURL = finalURL
	}
	report.FetchedAt = snap.FetchedAt
	report.Technical.StatusCode = snap.StatusCode
	report.Technical.PageSize = snap.Size
	report.Technical.LoadTimeMs = snap.LoadTime.Milliseconds()

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, report); err != nil {
			log.Warn("Report cache store failed", logging.Err(err))
		}
	}

	a.record(stats.Delta{Audits: 1})
	a.metrics.RecordAudit(metrics.OutcomeSuccess, report.Score)
	log.Info("Audit complete",
		logging.Int("score", report.Score),
		logging.Int("issues", len(report.Issues)),
		logging.Duration("elapsed", a.now().Sub(start)))
	return report, nil
}

// AnalyzeHTML audits markup that has already been retrieved. pageURL is
// used for the HTTPS check and the oracle summary only.
func (a *Analyzer) AnalyzeHTML(ctx context.Context, pageURL, html string, opts Options) *Report {
	report := a.audit(ctx, pageURL, html, opts.withDefaults())
	report.FetchedAt = a.now()
	return report
}

func (a *Analyzer) audit(ctx context.Context, pageURL, html string, opts Options) *Report {
	facts := a.extractor.Extract(html).ForURL(pageURL)
	issues := a.engine.Evaluate(facts)

	report := newReport(pageURL, facts)
	report.Issues = issues
	report.Score = rules.Score(issues)
	report.RuleSetVersion = rules.RuleSetVersion

	if opts.IncludeKeywords || opts.IncludeSuggestions {
		kctx := keywords.NewContext(facts)
		text := keywords.CombinedText(kctx, a.extractor.VisibleText(html))
		top := a.keywords.RankTop(a.keywords.Extract(text), kctx, opts.KeywordLimit)
		if opts.IncludeKeywords {
			report.Keywords = top
		}
		if opts.IncludeSuggestions {
			report.AISuggestions = a.suggest(ctx, oracle.NewSummary(pageURL, issues, top))
		}
	}
	return report
}

// suggest asks the oracle for recommendations. Any failure yields nil.
func (a *Analyzer) suggest(ctx context.Context, summary oracle.Summary) []string {
	if a.suggester == nil {
		a.metrics.RecordOracleCall(metrics.OutcomeSkipped)
		return nil
	}
	out, err := a.suggester.Suggest(ctx, summary)
	if err != nil {
		a.metrics.RecordOracleCall(metrics.OutcomeFailure)
		a.logger.Warn("Suggestion oracle unavailable",
			logging.String("url", summary.TargetURL), logging.Err(err))
		return nil
	}
	a.metrics.RecordOracleCall(metrics.OutcomeSuccess)
	return out
}

func (a *Analyzer) record(d stats.Delta) {
	if a.stats != nil {
		a.stats.Add(d)
	}
}
