// Package rules evaluates structural facts against a table of SEO rules and
// reduces the resulting issues to a score.
package rules

import (
	"sort"

	"github.com/seo-optimizer/auditor/extractor"
)

// Severity of an issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups issues in reports
type Category string

const (
	CategoryMeta      Category = "meta"
	CategoryContent   Category = "content"
	CategoryTechnical Category = "technical"
	CategoryImage     Category = "image"
	CategoryLink      Category = "link"
)

// categoryOrder fixes the order issues are reported in
var categoryOrder = map[Category]int{
	CategoryMeta:      0,
	CategoryContent:   1,
	CategoryTechnical: 2,
	CategoryImage:     3,
	CategoryLink:      4,
}

// Issue is a single rule violation
type Issue struct {
	RuleID     string   `json:"ruleId"`
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
}

// Rule is one row of a rule table. Applies must be pure.
type Rule struct {
	ID         string
	Severity   Severity
	Category   Category
	Applies    func(extractor.StructuralFacts) bool
	Message    func(extractor.StructuralFacts) string
	Suggestion string
}

// Engine evaluates a fixed rule table. Safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over rules (nil means DefaultRules). The rules
// are sorted once by category, keeping table order within a category.
func NewEngine(rules []Rule) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank(sorted[i].Category) < rank(sorted[j].Category)
	})
	return &Engine{rules: sorted}
}

// Rules returns the engine's rules in evaluation order
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule once against facts
func (e *Engine) Evaluate(facts extractor.StructuralFacts) []Issue {
	issues := make([]Issue, 0)
	for _, r := range e.rules {
		if !r.Applies(facts) {
			continue
		}
		issues = append(issues, Issue{
			RuleID:     r.ID,
			Severity:   r.Severity,
			Category:   r.Category,
			Message:    r.Message(facts),
			Suggestion: r.Suggestion,
		})
	}
	return issues
}

const (
	maxScore       = 100
	errorPenalty   = 10
	warningPenalty = 5
)

// Score starts at 100, subtracts 10 per error and 5 per warning, and clamps
// to [0,100]. Info issues cost nothing.
func Score(issues []Issue) int {
	score := maxScore
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			score -= errorPenalty
		case SeverityWarning:
			score -= warningPenalty
		}
	}
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Count returns the number of issues per severity
func Count(issues []Issue) map[Severity]int {
	counts := map[Severity]int{SeverityError: 0, SeverityWarning: 0, SeverityInfo: 0}
	for _, is := range issues {
		counts[is.Severity]++
	}
	return counts
}

func rank(c Category) int {
	if r, ok := categoryOrder[c]; ok {
		return r
	}
	return len(categoryOrder)
}
