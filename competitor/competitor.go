// Package competitor profiles competitor pages and computes keyword gaps
// against the caller's own keyword set.
package competitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cloudflare/ahocorasick"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/keywords"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
	"github.com/seo-optimizer/auditor/stats"
)

// MaxCompetitors is the most URLs one comparison accepts
const MaxCompetitors = 5

var (
	// ErrTooManyCompetitors is returned before any fetch when more than
	// MaxCompetitors URLs are requested
	ErrTooManyCompetitors = errors.New("too many competitors")
	// ErrNoCompetitors is returned when no competitor could be profiled
	ErrNoCompetitors = errors.New("no competitors could be profiled")
)

// PageFetcher retrieves a page snapshot
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Snapshot, error)
}

// Config tunes a Comparator
type Config struct {
	Concurrency int           `yaml:"concurrency"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
	TopKeywords int           `yaml:"top_keywords"`
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 15 * time.Second
	}
	if c.TopKeywords <= 0 {
		c.TopKeywords = 20
	}
	return c
}

// Facts is the subset of structural facts kept per competitor
type Facts struct {
	Title             string   `json:"title,omitempty"`
	TitleLength       int      `json:"titleLength"`
	Description       string   `json:"description,omitempty"`
	DescriptionLength int      `json:"descriptionLength"`
	Canonical         string   `json:"canonical,omitempty"`
	H1Texts           []string `json:"h1Texts"`
	ImageCount        int      `json:"imageCount"`
	InternalLinkCount int      `json:"internalLinkCount"`
	ExternalLinkCount int      `json:"externalLinkCount"`
	IsHTTPS           bool     `json:"isHttps"`
}

// Profile describes one successfully fetched competitor
type Profile struct {
	URL                 string             `json:"url"`
	Domain              string             `json:"domain"`
	Facts               Facts              `json:"structuralFacts"`
	TopKeywords         []keywords.Keyword `json:"topKeywords"`
	WordCount           int                `json:"wordCount"`
	MatchedSelfKeywords []string           `json:"matchedSelfKeywords"`
}

// KeywordGap holds the set differences between self and competitor
// keywords, each sorted.
type KeywordGap struct {
	Shared         []string `json:"sharedKeywords"`
	SelfOnly       []string `json:"selfOnlyKeywords"`
	CompetitorOnly []string `json:"competitorOnlyKeywords"`
}

// Failure records a competitor that could not be profiled
type Failure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Comparison is the result of one Compare call
type Comparison struct {
	Competitors []Profile  `json:"competitors"`
	Gap         KeywordGap `json:"gap"`
	Failed      []Failure  `json:"failed,omitempty"`
}

// Comparator runs competitor comparisons. It is safe for concurrent use.
type Comparator struct {
	fetcher   PageFetcher
	extractor extractor.Extractor
	keywords  *keywords.Extractor
	cfg       Config
	metrics   *metrics.Metrics
	stats     stats.Recorder
	logger    logging.Logger
}

// Option configures a Comparator
type Option func(*Comparator)

func WithExtractor(e extractor.Extractor) Option { return func(c *Comparator) { c.extractor = e } }
func WithKeywords(k *keywords.Extractor) Option  { return func(c *Comparator) { c.keywords = k } }
func WithConfig(cfg Config) Option               { return func(c *Comparator) { c.cfg = cfg } }
func WithMetrics(m *metrics.Metrics) Option      { return func(c *Comparator) { c.metrics = m } }
func WithStats(r stats.Recorder) Option          { return func(c *Comparator) { c.stats = r } }
func WithLogger(l logging.Logger) Option         { return func(c *Comparator) { c.logger = l } }

// New creates a Comparator
func New(f PageFetcher, opts ...Option) *Comparator {
	c := &Comparator{
		fetcher:   f,
		extractor: extractor.NewPatternExtractor(),
		keywords:  keywords.NewExtractor(nil),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg = c.cfg.withDefaults()
	return c
}

type outcome struct {
	profile *Profile
	err     error
}

// Compare profiles every competitor URL concurrently and computes the gap
// against selfKeywords from the competitors that succeeded. One failed
// competitor never fails the comparison.
func (c *Comparator) Compare(ctx context.Context, selfKeywords, urls []string) (*Comparison, error) {
	if len(urls) > MaxCompetitors {
		return nil, fmt.Errorf("%w: %d requested, at most %d", ErrTooManyCompetitors, len(urls), MaxCompetitors)
	}
	if len(urls) == 0 {
		return nil, ErrNoCompetitors
	}
	self := normalizeSet(selfKeywords)

	outcomes := make([]outcome, len(urls))
	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
			defer cancel()
			p, err := c.profile(taskCtx, u, self)
			outcomes[i] = outcome{profile: p, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &Comparison{Competitors: make([]Profile, 0, len(urls))}
	var errs []error
	for i, o := range outcomes {
		if o.err != nil {
			c.metrics.RecordCompetitorFetch(metrics.OutcomeFailure)
			c.logger.Warn("Competitor skipped", logging.String("url", urls[i]), logging.Err(o.err))
			result.Failed = append(result.Failed, Failure{URL: urls[i], Reason: reason(o.err)})
			errs = append(errs, o.err)
			continue
		}
		c.metrics.RecordCompetitorFetch(metrics.OutcomeSuccess)
		result.Competitors = append(result.Competitors, *o.profile)
	}

	if c.stats != nil {
		c.stats.Add(stats.Delta{Comparisons: 1})
	}
	if len(result.Competitors) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoCompetitors, errors.Join(errs...))
	}

	result.Gap = Gap(self, result.Competitors)
	return result, nil
}

func (c *Comparator) profile(ctx context.Context, rawURL string, self []string) (*Profile, error) {
	snap, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	pageURL := snap.FinalURL
	if pageURL == "" {
		pageURL = snap.URL
	}

	facts := c.extractor.Extract(snap.RawHTML).ForURL(pageURL)
	kctx := keywords.NewContext(facts)
	text := keywords.CombinedText(kctx, c.extractor.VisibleText(snap.RawHTML))

	return &Profile{
		URL:    pageURL,
		Domain: Domain(pageURL),
		Facts: Facts{
			Title:             facts.Title,
			TitleLength:       facts.TitleLength,
			Description:       facts.Description,
			DescriptionLength: facts.DescriptionLength,
			Canonical:         facts.Canonical,
			H1Texts:           facts.H1Texts,
			ImageCount:        facts.ImageCount,
			InternalLinkCount: facts.InternalLinkCount,
			ExternalLinkCount: facts.ExternalLinkCount,
			IsHTTPS:           facts.IsHTTPS,
		},
		TopKeywords:         c.keywords.RankTop(c.keywords.Extract(text), kctx, c.cfg.TopKeywords),
		WordCount:           facts.WordCount,
		MatchedSelfKeywords: matchSelf(self, text),
	}, nil
}

// Gap computes shared, self-only and competitor-only keywords. self must
// already be normalised.
func Gap(self []string, competitors []Profile) KeywordGap {
	selfSet := make(map[string]bool, len(self))
	for _, kw := range self {
		selfSet[kw] = true
	}
	theirs := make(map[string]bool)
	for _, p := range competitors {
		for _, kw := range p.TopKeywords {
			theirs[kw.Text] = true
		}
	}

	gap := KeywordGap{Shared: []string{}, SelfOnly: []string{}, CompetitorOnly: []string{}}
	for kw := range selfSet {
		if theirs[kw] {
			gap.Shared = append(gap.Shared, kw)
		} else {
			gap.SelfOnly = append(gap.SelfOnly, kw)
		}
	}
	for kw := range theirs {
		if !selfSet[kw] {
			gap.CompetitorOnly = append(gap.CompetitorOnly, kw)
		}
	}
	sort.Strings(gap.Shared)
	sort.Strings(gap.SelfOnly)
	sort.Strings(gap.CompetitorOnly)
	return gap
}

// matchSelf returns the self keywords occurring anywhere in text as
// substrings, in self order.
func matchSelf(self []string, text string) []string {
	matched := make([]string, 0)
	if len(self) == 0 {
		return matched
	}
	m := ahocorasick.NewStringMatcher(self)
	hit := make(map[int]bool)
	for _, i := range m.Match([]byte(keywords.Normalize(text))) {
		hit[i] = true
	}
	for i, kw := range self {
		if hit[i] {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Domain returns the registrable domain of a URL (example.co.uk for
// www.shop.example.co.uk). IPs and single-label hosts are returned as is.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func normalizeSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		n := keywords.Normalize(kw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func reason(err error) string {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		return fe.Reason()
	}
	return err.Error()
}
