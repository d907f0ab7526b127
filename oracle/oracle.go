// Package oracle asks an external text-generation service for prose SEO
// recommendations. Audits never depend on it: every failure is reported as
// an error the caller is expected to swallow.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/seo-optimizer/auditor/keywords"
	"github.com/seo-optimizer/auditor/rules"
)

// Summary limits
const (
	MaxIssues   = 5
	MaxKeywords = 10
)

var (
	// ErrUnavailable is returned when no provider is configured or reachable
	ErrUnavailable = errors.New("suggestion oracle unavailable")
	// ErrMalformedResponse is returned when a reply holds no usable suggestions
	ErrMalformedResponse = errors.New("malformed oracle response")
)

// Summary is the compact audit digest sent to a provider
type Summary struct {
	TargetURL string   `json:"targetUrl"`
	TopIssues []string `json:"topIssues"`
	Keywords  []string `json:"keywords"`
}

// NewSummary keeps the most severe issue messages (errors, then warnings,
// then info, table order within a severity) and the first keywords.
func NewSummary(targetURL string, issues []rules.Issue, kws []keywords.Keyword) Summary {
	ordered := make([]rules.Issue, len(issues))
	copy(ordered, issues)
	sort.SliceStable(ordered, func(i, j int) bool {
		return severityRank(ordered[i].Severity) < severityRank(ordered[j].Severity)
	})

	s := Summary{TargetURL: targetURL, TopIssues: []string{}, Keywords: []string{}}
	for _, is := range ordered {
		if len(s.TopIssues) == MaxIssues {
			break
		}
		s.TopIssues = append(s.TopIssues, is.Message)
	}
	for _, kw := range kws {
		if len(s.Keywords) == MaxKeywords {
			break
		}
		s.Keywords = append(s.Keywords, kw.Text)
	}
	return s
}

func severityRank(s rules.Severity) int {
	switch s {
	case rules.SeverityError:
		return 0
	case rules.SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Suggester produces prose recommendations for an audit summary
type Suggester interface {
	Suggest(ctx context.Context, summary Summary) ([]string, error)
}

// SuggesterFunc adapts a function to Suggester
type SuggesterFunc func(ctx context.Context, summary Summary) ([]string, error)

// Suggest implements Suggester
func (f SuggesterFunc) Suggest(ctx context.Context, summary Summary) ([]string, error) {
	return f(ctx, summary)
}

// Config selects and configures a provider
type Config struct {
	Provider  string        `yaml:"provider" env:"ORACLE_PROVIDER"`
	Model     string        `yaml:"model" env:"ORACLE_MODEL"`
	APIKey    string        `yaml:"api_key" env:"ORACLE_API_KEY"`
	BaseURL   string        `yaml:"base_url" env:"ORACLE_BASE_URL"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

const (
	defaultMaxTokens = 1024
	defaultTimeout   = 20 * time.Second
)

// NewSuggester returns the provider named by cfg.Provider. An empty name or
// "none" disables suggestions and returns a nil Suggester.
func NewSuggester(cfg Config) (Suggester, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "claude", "anthropic":
		return NewClaudeSuggester(cfg)
	case "openai", "gpt":
		return NewOpenAISuggester(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", cfg.Provider)
	}
}

// apiKey prefers the configured key, then the auditor specific variable,
// then the vendor's standard one.
func apiKey(configured string, envVars ...string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: one of %v must be set", ErrUnavailable, envVars)
}
