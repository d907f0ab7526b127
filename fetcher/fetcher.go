// Package fetcher retrieves raw page markup over HTTP.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultUserAgent    = "SEOAuditor/1.0 (+https://github.com/seo-optimizer/auditor)"
	DefaultMaxRedirects = 5
	DefaultMaxBodyBytes = 5 << 20
)

// Config holds fetcher settings. Zero values fall back to the defaults above.
type Config struct {
	Timeout           time.Duration
	UserAgent         string
	MaxRedirects      int
	MaxBodyBytes      int64
	RequestsPerSecond float64
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Snapshot is the raw result of one successful fetch. Size is the undecoded
// body length in bytes; LoadTime spans the request and the body read.
type Snapshot struct {
	URL        string        `json:"url"`
	FinalURL   string        `json:"finalUrl"`
	FetchedAt  time.Time     `json:"fetchedAt"`
	StatusCode int           `json:"statusCode"`
	Size       int           `json:"size"`
	LoadTime   time.Duration `json:"loadTime"`
	RawHTML    string        `json:"-"`
}

// Fetcher downloads pages. It is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewTransport returns the pooled transport shared by fetches and link probes
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// New creates a Fetcher using the given transport (nil means NewTransport())
func New(cfg Config, transport http.RoundTripper) *Fetcher {
	cfg = cfg.withDefaults()
	if transport == nil {
		transport = NewTransport()
	}

	f := &Fetcher{cfg: cfg}
	f.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return ErrTooManyRedirects
			}
			req.Header.Set("User-Agent", cfg.UserAgent)
			return nil
		},
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return f
}

// Transport returns the round tripper so probes with a different redirect
// policy can share the connection pool.
func (f *Fetcher) Transport() http.RoundTripper {
	return f.client.Transport
}

// UserAgent returns the declared user agent
func (f *Fetcher) UserAgent() string {
	return f.cfg.UserAgent
}

// Fetch retrieves rawURL. A missing scheme is treated as https.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Snapshot, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Kind: Classify(err), URL: target, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidURL, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: Classify(err), URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Kind: KindHTTPStatus, URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		kind := Classify(err)
		if kind == KindNetwork {
			kind = KindBody
		}
		return nil, &FetchError{Kind: kind, URL: target, Err: err}
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, &FetchError{Kind: KindBody, URL: target,
			Err: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.cfg.MaxBodyBytes)}
	}
	loadTime := time.Since(start)

	decoded, err := decode(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{Kind: KindBody, URL: target, Err: err}
	}

	return &Snapshot{
		URL:        target,
		FinalURL:   resp.Request.URL.String(),
		FetchedAt:  time.Now().UTC(),
		StatusCode: resp.StatusCode,
		Size:       len(body),
		LoadTime:   loadTime,
		RawHTML:    decoded,
	}, nil
}

// decode converts body to UTF-8 using the declared or sniffed charset
func decode(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		// Unknown charset label: keep the bytes as they are.
		return string(body), nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(out), nil
}

// NormalizeURL trims raw, adds https:// when no scheme is present and
// validates that the result is an absolute http(s) URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &FetchError{Kind: KindInvalidURL, URL: raw, Err: fmt.Errorf("empty URL")}
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	} else if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &FetchError{Kind: KindInvalidURL, URL: raw, Err: err}
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", &FetchError{Kind: KindInvalidURL, URL: raw, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return "", &FetchError{Kind: KindInvalidURL, URL: raw, Err: fmt.Errorf("missing host")}
	}
	u.Scheme = scheme
	return u.String(), nil
}
