// Package linkaudit probes the links of a page and reports which are broken.
package linkaudit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seo-optimizer/auditor/cache"
	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
	"github.com/seo-optimizer/auditor/stats"
)

// LinkType tells whether a link stays on the audited site
type LinkType string

const (
	Internal LinkType = "internal"
	External LinkType = "external"
)

// Probe results reported to metrics
const (
	resultWorking = "working"
	resultBroken  = "broken"
	resultCached  = "cached"
)

// LinkCheckResult is the outcome of probing one link. HTTPStatus is nil when
// no response was received.
type LinkCheckResult struct {
	URL            string   `json:"url"`
	Type           LinkType `json:"type"`
	HTTPStatus     *int     `json:"httpStatus"`
	IsWorking      bool     `json:"isWorking"`
	RedirectTarget string   `json:"redirectTarget,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// PageFetcher retrieves a page snapshot
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Snapshot, error)
}

// Config tunes an Auditor
type Config struct {
	MaxLinks     int           `yaml:"max_links"`
	Concurrency  int           `yaml:"concurrency"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

func (c Config) withDefaults() Config {
	if c.MaxLinks <= 0 {
		c.MaxLinks = 50
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = fetcher.DefaultUserAgent
	}
	return c
}

// Auditor checks links. It is safe for concurrent use.
type Auditor struct {
	fetcher   PageFetcher
	client    *http.Client
	extractor extractor.Extractor
	cache     cache.Cache
	cfg       Config
	metrics   *metrics.Metrics
	stats     stats.Recorder
	logger    logging.Logger
}

// Option configures an Auditor
type Option func(*Auditor)

func WithExtractor(e extractor.Extractor) Option { return func(a *Auditor) { a.extractor = e } }
func WithCache(c cache.Cache) Option             { return func(a *Auditor) { a.cache = c } }
func WithConfig(cfg Config) Option               { return func(a *Auditor) { a.cfg = cfg } }
func WithMetrics(m *metrics.Metrics) Option      { return func(a *Auditor) { a.metrics = m } }
func WithStats(r stats.Recorder) Option          { return func(a *Auditor) { a.stats = r } }
func WithLogger(l logging.Logger) Option         { return func(a *Auditor) { a.logger = l } }

// New creates an Auditor. Probes go through transport (nil means
// fetcher.NewTransport()) and never follow redirects.
func New(f PageFetcher, transport http.RoundTripper, opts ...Option) *Auditor {
	if transport == nil {
		transport = fetcher.NewTransport()
	}
	a := &Auditor{
		fetcher:   f,
		extractor: extractor.NewPatternExtractor(),
		logger:    logging.NewNop(),
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cfg = a.cfg.withDefaults()
	return a
}

// Audit fetches pageURL and checks its links. Failing to fetch the page is
// fatal and returned as a *fetcher.FetchError.
func (a *Auditor) Audit(ctx context.Context, pageURL string, maxLinks int) ([]LinkCheckResult, error) {
	snap, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	base := snap.FinalURL
	if base == "" {
		base = snap.URL
	}
	return a.Check(ctx, base, a.extractor.Links(snap.RawHTML), maxLinks)
}

// Check resolves hrefs against pageURL, drops non-http(s) and duplicate
// links, keeps the first maxLinks (the configured limit when not positive)
// and probes them concurrently. Results follow link order. A failing probe
// is reported in its result and never aborts the batch.
func (a *Auditor) Check(ctx context.Context, pageURL string, hrefs []string, maxLinks int) ([]LinkCheckResult, error) {
	normalized, err := fetcher.NormalizeURL(pageURL)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return nil, &fetcher.FetchError{Kind: fetcher.KindInvalidURL, URL: pageURL, Err: err}
	}
	if maxLinks <= 0 {
		maxLinks = a.cfg.MaxLinks
	}
	links := Resolve(base, hrefs, maxLinks)

	results := make([]LinkCheckResult, len(links))
	fromCache := make([]bool, len(links))
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
			defer cancel()
			results[i], fromCache[i] = a.probe(probeCtx, link)
			results[i].Type = linkType(base, link)
			return nil
		})
	}
	_ = g.Wait()

	var delta stats.Delta
	for i, r := range results {
		switch {
		case fromCache[i]:
			delta.LinkCacheHits++
			a.metrics.RecordLinkProbe(resultCached)
		case r.IsWorking:
			delta.LinkProbes++
			a.metrics.RecordLinkProbe(resultWorking)
		default:
			delta.LinkProbes++
			a.metrics.RecordLinkProbe(resultBroken)
		}
		if !r.IsWorking {
			delta.BrokenLinks++
		}
	}
	if a.stats != nil {
		a.stats.Add(delta)
	}
	a.logger.Debug("Links checked",
		logging.String("page", normalized),
		logging.Int("links", len(results)),
		logging.Int("broken", delta.BrokenLinks))
	return results, nil
}

// Resolve turns hrefs into absolute http(s) URLs without fragments, in
// first-seen order, keeping at most limit of them.
func Resolve(base *url.URL, hrefs []string, limit int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, href := range hrefs {
		if len(out) >= limit {
			break
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		u := base.ResolveReference(ref)
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		u.Fragment = ""
		s := u.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (a *Auditor) probe(ctx context.Context, link string) (LinkCheckResult, bool) {
	key := cache.Key("link", link)
	if a.cache != nil {
		var cached LinkCheckResult
		found, err := a.cache.Get(ctx, key, &cached)
		if err != nil {
			a.logger.Warn("Link cache lookup failed", logging.String("url", link), logging.Err(err))
		}
		if found {
			return cached, true
		}
	}

	result := LinkCheckResult{URL: link}
	resp, err := a.request(ctx, http.MethodHead, link)
	if err != nil || retryWithGet(resp.StatusCode) {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() == nil {
			resp, err = a.request(ctx, http.MethodGet, link)
		}
	}
	if err != nil {
		result.Error = string(fetcher.Classify(err))
		return result, false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	status := resp.StatusCode
	result.HTTPStatus = &status
	switch {
	case status >= 200 && status <= 299:
		result.IsWorking = true
	case status >= 300 && status <= 399:
		result.IsWorking = true
		result.RedirectTarget = redirectTarget(link, resp.Header.Get("Location"))
	}

	// Only answered probes are cached; a timeout may be transient.
	if a.cache != nil {
		if err := a.cache.Set(ctx, key, result); err != nil {
			a.logger.Warn("Link cache store failed", logging.String("url", link), logging.Err(err))
		}
	}
	return result, false
}

// retryWithGet reports HEAD answers that servers commonly send for pages a
// GET would serve.
func retryWithGet(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

func (a *Auditor) request(ctx context.Context, method, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)
	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	return resp, nil
}

func redirectTarget(link, location string) string {
	if location == "" {
		return ""
	}
	base, err := url.Parse(link)
	if err != nil {
		return location
	}
	ref, err := url.Parse(location)
	if err != nil {
		return location
	}
	return base.ResolveReference(ref).String()
}

// linkType compares hosts ignoring a leading www.
func linkType(base *url.URL, link string) LinkType {
	u, err := url.Parse(link)
	if err != nil {
		return External
	}
	if siteHost(u.Hostname()) == siteHost(base.Hostname()) {
		return Internal
	}
	return External
}

func siteHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
