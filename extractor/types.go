// Package extractor derives structural SEO facts from raw page markup.
//
// Two implementations share one contract: PatternExtractor (the default) works
// on the raw text with regular expressions, DOMExtractor parses a tree with
// goquery. Callers depend only on the Extractor interface. Neither ever fails:
// missing elements yield empty strings and zero counts.
package extractor

import (
	"net/url"
	"strings"
)

// StructuralFacts is the immutable set of facts extracted from one page.
// Optional text fields are empty when the element is absent.
type StructuralFacts struct {
	Title             string   `json:"title,omitempty"`
	TitleLength       int      `json:"titleLength"`
	Description       string   `json:"description,omitempty"`
	DescriptionLength int      `json:"descriptionLength"`
	Canonical         string   `json:"canonical,omitempty"`
	Robots            string   `json:"robots,omitempty"`
	OGTitle           string   `json:"ogTitle,omitempty"`
	OGDescription     string   `json:"ogDescription,omitempty"`
	OGImage           string   `json:"ogImage,omitempty"`
	Lang              string   `json:"lang,omitempty"`
	H1Count           int      `json:"h1Count"`
	H1Texts           []string `json:"h1Texts"`
	H2Texts           []string `json:"h2Texts"`
	WordCount         int      `json:"wordCount"`
	ImageCount        int      `json:"imageCount"`
	ImagesWithoutAlt  int      `json:"imagesWithoutAlt"`
	InternalLinkCount int      `json:"internalLinkCount"`
	ExternalLinkCount int      `json:"externalLinkCount"`
	HasViewportTag    bool     `json:"hasViewportTag"`
	HasCharsetTag     bool     `json:"hasCharsetTag"`
	IsHTTPS           bool     `json:"isHttps"`
}

// ForURL returns a copy of f with IsHTTPS derived from the page URL
func (f StructuralFacts) ForURL(pageURL string) StructuralFacts {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	f.IsHTTPS = err == nil && strings.EqualFold(u.Scheme, "https")
	return f
}

// Extractor is the substitution point for markup parsing strategies
type Extractor interface {
	// Extract returns the structural facts of html. IsHTTPS is left false;
	// see StructuralFacts.ForURL.
	Extract(html string) StructuralFacts
	// Links returns every anchor href in document order, unresolved.
	Links(html string) []string
	// VisibleText returns the human visible text of the page body with
	// whitespace collapsed.
	VisibleText(html string) string
	// Headings returns the text of every heading of the given level (1-6)
	// in document order.
	Headings(html string, level int) []string
}

// New returns the extractor registered under name ("pattern" or "dom").
// Unknown names fall back to the pattern extractor.
func New(name string) Extractor {
	if strings.EqualFold(name, "dom") {
		return NewDOMExtractor()
	}
	return NewPatternExtractor()
}

// isExternalHref reports whether href carries an absolute http(s) scheme.
// No same-site canonicalisation is attempted.
func isExternalHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://")
}

// isNavigableHref filters out hrefs that never count as page links
func isNavigableHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" {
		return false
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(h, prefix) {
			return false
		}
	}
	return true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
