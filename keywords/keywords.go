// Package keywords turns page text into ranked keyword candidates.
package keywords

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/seo-optimizer/auditor/extractor"
)

// Importance is derived from where and how often a token appears
type Importance string

const (
	High   Importance = "high"
	Medium Importance = "medium"
	Low    Importance = "low"
)

const (
	minCJKRun   = 2
	minLatinRun = 3
)

// Keyword is one candidate token and its placement signals
type Keyword struct {
	Text       string     `json:"text"`
	Frequency  int        `json:"frequency"`
	InTitle    bool       `json:"inTitle"`
	InHeading  bool       `json:"inHeading"`
	InMeta     bool       `json:"inMeta"`
	Importance Importance `json:"importance"`
}

// Context carries the structural text a keyword is scored against
type Context struct {
	Title       string
	Description string
	H1s         []string
	Headings    []string
}

// NewContext builds a Context from extracted facts
func NewContext(f extractor.StructuralFacts) Context {
	return Context{
		Title:       f.Title,
		Description: f.Description,
		H1s:         f.H1Texts,
		Headings:    f.H2Texts,
	}
}

// CombinedText joins title, description and body text. Headings are part of
// the body and are not appended again.
func CombinedText(ctx Context, body string) string {
	return strings.Join([]string{ctx.Title, ctx.Description, body}, " ")
}

// Extractor tokenises text. It holds no mutable state and may be shared.
type Extractor struct {
	stopwords Set
}

// NewExtractor returns an extractor using stopwords (nil means DefaultStopwords)
func NewExtractor(stopwords Set) *Extractor {
	if stopwords == nil {
		stopwords = DefaultStopwords()
	}
	return &Extractor{stopwords: stopwords}
}

// Tokenize returns candidate tokens of text in order, stopwords removed.
// A token is a run of at least two CJK characters or at least three Latin
// letters; Latin tokens are case folded.
func (e *Extractor) Tokenize(text string) []string {
	folder := cases.Fold()
	text = norm.NFKC.String(text)

	var tokens []string
	var run []rune
	var runClass script

	flush := func() {
		if len(run) == 0 {
			return
		}
		token := string(run)
		switch runClass {
		case scriptLatin:
			if len(run) < minLatinRun {
				token = ""
			} else {
				token = folder.String(token)
			}
		case scriptCJK:
			if len(run) < minCJKRun {
				token = ""
			}
		}
		if token != "" && !e.stopwords.Has(token) {
			tokens = append(tokens, token)
		}
		run = run[:0]
	}

	for _, r := range text {
		class := classify(r)
		if class != runClass {
			flush()
			runClass = class
		}
		if class != scriptNone {
			run = append(run, r)
		}
	}
	flush()
	return tokens
}

// Extract counts tokens of text. Keywords come back in first-seen order with
// Low importance; use Analyze or Classify to place them.
func (e *Extractor) Extract(text string) []Keyword {
	index := make(map[string]int)
	var out []Keyword
	for _, tok := range e.Tokenize(text) {
		if i, ok := index[tok]; ok {
			out[i].Frequency++
			continue
		}
		index[tok] = len(out)
		out = append(out, Keyword{Text: tok, Frequency: 1, Importance: Low})
	}
	return out
}

// Analyze extracts keywords from text and classifies them against ctx
func (e *Extractor) Analyze(text string, ctx Context) []Keyword {
	return e.Classify(e.Extract(text), ctx)
}

// Classify returns a copy of kws with placement flags and importance set.
//
// high:   in the title, or in an H1 with frequency >= 3
// medium: in an H1, in the meta description, or frequency >= 5
// low:    everything else
func (e *Extractor) Classify(kws []Keyword, ctx Context) []Keyword {
	title := NewSet(e.Tokenize(ctx.Title)...)
	meta := NewSet(e.Tokenize(ctx.Description)...)
	h1 := make(Set)
	for _, h := range ctx.H1s {
		for _, tok := range e.Tokenize(h) {
			h1[tok] = struct{}{}
		}
	}
	heading := make(Set, len(h1))
	for tok := range h1 {
		heading[tok] = struct{}{}
	}
	for _, h := range ctx.Headings {
		for _, tok := range e.Tokenize(h) {
			heading[tok] = struct{}{}
		}
	}

	out := make([]Keyword, len(kws))
	for i, kw := range kws {
		kw.InTitle = title.Has(kw.Text)
		kw.InMeta = meta.Has(kw.Text)
		kw.InHeading = heading.Has(kw.Text)
		inH1 := h1.Has(kw.Text)

		switch {
		case kw.InTitle || (inH1 && kw.Frequency >= 3):
			kw.Importance = High
		case inH1 || kw.InMeta || kw.Frequency >= 5:
			kw.Importance = Medium
		default:
			kw.Importance = Low
		}
		out[i] = kw
	}
	return out
}

// RankTop classifies kws against ctx, orders them by descending frequency
// (ties keep first-seen order), keeps high and medium keywords and truncates
// to limit. A limit <= 0 keeps all of them.
func (e *Extractor) RankTop(kws []Keyword, ctx Context, limit int) []Keyword {
	ranked := e.Classify(kws, ctx)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Frequency > ranked[j].Frequency
	})

	top := make([]Keyword, 0, len(ranked))
	for _, kw := range ranked {
		if kw.Importance == Low {
			continue
		}
		top = append(top, kw)
		if limit > 0 && len(top) == limit {
			break
		}
	}
	return top
}

// Normalize folds a caller supplied keyword the same way tokens are folded
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

type script int

const (
	scriptNone script = iota
	scriptLatin
	scriptCJK
)

func classify(r rune) script {
	switch {
	case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
		return scriptCJK
	case unicode.IsLetter(r) && unicode.Is(unicode.Latin, r):
		return scriptLatin
	default:
		return scriptNone
	}
}
