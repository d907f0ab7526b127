package rules

import (
	"fmt"

	"github.com/seo-optimizer/auditor/extractor"
)

// RuleSetVersion identifies DefaultRules
const RuleSetVersion = "2024.1"

// Length and count thresholds used by DefaultRules
const (
	TitleMinLength       = 30
	TitleMaxLength       = 60
	DescriptionMinLength = 70
	DescriptionMaxLength = 155
	MinWordCount         = 300
	MinInternalLinks     = 2
)

func static(msg string) func(extractor.StructuralFacts) string {
	return func(extractor.StructuralFacts) string { return msg }
}

// DefaultRules returns a fresh copy of the standard rule table
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:         "title-missing",
			Severity:   SeverityError,
			Category:   CategoryMeta,
			Applies:    func(f extractor.StructuralFacts) bool { return f.Title == "" },
			Message:    static("Page has no title tag"),
			Suggestion: "Add a unique, descriptive <title> of 30-60 characters.",
		},
		{
			ID:       "title-too-short",
			Severity: SeverityWarning,
			Category: CategoryMeta,
			Applies: func(f extractor.StructuralFacts) bool {
				return f.Title != "" && f.TitleLength < TitleMinLength
			},
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("Title is too short (%d characters, minimum %d)", f.TitleLength, TitleMinLength)
			},
			Suggestion: "Expand the title with the page's primary keyword and brand.",
		},
		{
			ID:       "title-too-long",
			Severity: SeverityWarning,
			Category: CategoryMeta,
			Applies: func(f extractor.StructuralFacts) bool {
				return f.TitleLength > TitleMaxLength
			},
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("Title is too long (%d characters, maximum %d)", f.TitleLength, TitleMaxLength)
			},
			Suggestion: "Shorten the title so search results do not truncate it.",
		},
		{
			ID:         "description-missing",
			Severity:   SeverityError,
			Category:   CategoryMeta,
			Applies:    func(f extractor.StructuralFacts) bool { return f.Description == "" },
			Message:    static("Page has no meta description"),
			Suggestion: "Add a meta description of 70-155 characters summarising the page.",
		},
		{
			ID:       "description-too-short",
			Severity: SeverityWarning,
			Category: CategoryMeta,
			Applies: func(f extractor.StructuralFacts) bool {
				return f.Description != "" && f.DescriptionLength < DescriptionMinLength
			},
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("Meta description is too short (%d characters, minimum %d)", f.DescriptionLength, DescriptionMinLength)
			},
			Suggestion: "Describe the page's value and include a call to action.",
		},
		{
			ID:       "description-too-long",
			Severity: SeverityWarning,
			Category: CategoryMeta,
			Applies: func(f extractor.StructuralFacts) bool {
				return f.DescriptionLength > DescriptionMaxLength
			},
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("Meta description is too long (%d characters, maximum %d)", f.DescriptionLength, DescriptionMaxLength)
			},
			Suggestion: "Trim the description so the key message fits in the snippet.",
		},
		{
			ID:         "canonical-missing",
			Severity:   SeverityWarning,
			Category:   CategoryMeta,
			Applies:    func(f extractor.StructuralFacts) bool { return f.Canonical == "" },
			Message:    static("No canonical URL declared"),
			Suggestion: `Add <link rel="canonical"> pointing at the preferred URL.`,
		},
		{
			ID:       "open-graph-incomplete",
			Severity: SeverityInfo,
			Category: CategoryMeta,
			Applies: func(f extractor.StructuralFacts) bool {
				return f.OGTitle == "" || f.OGDescription == "" || f.OGImage == ""
			},
			Message:    static("Open Graph tags are incomplete"),
			Suggestion: "Add og:title, og:description and og:image for link previews.",
		},
		{
			ID:         "h1-missing",
			Severity:   SeverityError,
			Category:   CategoryContent,
			Applies:    func(f extractor.StructuralFacts) bool { return f.H1Count == 0 },
			Message:    static("Page has no H1 heading"),
			Suggestion: "Add a single H1 that states the page topic.",
		},
		{
			ID:       "h1-multiple",
			Severity: SeverityWarning,
			Category: CategoryContent,
			Applies:  func(f extractor.StructuralFacts) bool { return f.H1Count > 1 },
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("Page has %d H1 headings", f.H1Count)
			},
			Suggestion: "Keep one H1 and demote the others to H2.",
		},
		{
			ID:       "thin-content",
			Severity: SeverityWarning,
			Category: CategoryContent,
			Applies:  func(f extractor.StructuralFacts) bool { return f.WordCount < MinWordCount },
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("Thin content (%d words, minimum %d)", f.WordCount, MinWordCount)
			},
			Suggestion: "Expand the body copy with useful, original content.",
		},
		{
			ID:       "images-missing-alt",
			Severity: SeverityWarning,
			Category: CategoryImage,
			Applies:  func(f extractor.StructuralFacts) bool { return f.ImagesWithoutAlt > 0 },
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("%d of %d images have no alt text", f.ImagesWithoutAlt, f.ImageCount)
			},
			Suggestion: "Describe every meaningful image with an alt attribute.",
		},
		{
			ID:       "few-internal-links",
			Severity: SeverityWarning,
			Category: CategoryLink,
			Applies:  func(f extractor.StructuralFacts) bool { return f.InternalLinkCount < MinInternalLinks },
			Message: func(f extractor.StructuralFacts) string {
				return fmt.Sprintf("Only %d internal links (minimum %d)", f.InternalLinkCount, MinInternalLinks)
			},
			Suggestion: "Link to related pages on the same site.",
		},
		{
			ID:         "not-https",
			Severity:   SeverityError,
			Category:   CategoryTechnical,
			Applies:    func(f extractor.StructuralFacts) bool { return !f.IsHTTPS },
			Message:    static("Page is not served over HTTPS"),
			Suggestion: "Serve the page over HTTPS and redirect plain HTTP.",
		},
		{
			ID:         "viewport-missing",
			Severity:   SeverityError,
			Category:   CategoryTechnical,
			Applies:    func(f extractor.StructuralFacts) bool { return !f.HasViewportTag },
			Message:    static("No viewport meta tag"),
			Suggestion: `Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
		},
	}
}
