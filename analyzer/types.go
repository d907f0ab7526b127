package analyzer

import (
	"time"

	"github.com/google/uuid"

	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/keywords"
	"github.com/seo-optimizer/auditor/rules"
)

// Report is the complete audit of one page. The caller owns it once returned.
type Report struct {
	ID             uuid.UUID          `json:"id"`
	URL            string             `json:"url"`
	FinalURL       string             `json:"finalUrl,omitempty"`
	FetchedAt      time.Time          `json:"fetchedAt"`
	Score          int                `json:"score"`
	Issues         []rules.Issue      `json:"issues"`
	Meta           MetaSection        `json:"meta"`
	Content        ContentSection     `json:"content"`
	Technical      TechnicalSection   `json:"technical"`
	Links          LinkSection        `json:"links"`
	Keywords       []keywords.Keyword `json:"keywords,omitempty"`
	AISuggestions  []string           `json:"aiSuggestions,omitempty"`
	RuleSetVersion string             `json:"ruleSetVersion"`
	Cached         bool               `json:"cached"`
}

type MetaSection struct {
	Title             string `json:"title,omitempty"`
	TitleLength       int    `json:"titleLength"`
	Description       string `json:"description,omitempty"`
	DescriptionLength int    `json:"descriptionLength"`
	Canonical         string `json:"canonical,omitempty"`
	Robots            string `json:"robots,omitempty"`
	OGTitle           string `json:"ogTitle,omitempty"`
	OGDescription     string `json:"ogDescription,omitempty"`
	OGImage           string `json:"ogImage,omitempty"`
}

type ContentSection struct {
	Lang             string   `json:"lang,omitempty"`
	H1Count          int      `json:"h1Count"`
	H1Texts          []string `json:"h1Texts"`
	H2Texts          []string `json:"h2Texts"`
	WordCount        int      `json:"wordCount"`
	ImageCount       int      `json:"imageCount"`
	ImagesWithoutAlt int      `json:"imagesWithoutAlt"`
}

// TechnicalSection includes the page size in bytes and the load time of the
// fetch; both stay zero for AnalyzeHTML.
type TechnicalSection struct {
	StatusCode     int   `json:"statusCode,omitempty"`
	IsHTTPS        bool  `json:"isHttps"`
	HasViewportTag bool  `json:"hasViewportTag"`
	HasCharsetTag  bool  `json:"hasCharsetTag"`
	PageSize       int   `json:"pageSize"`
	LoadTimeMs     int64 `json:"loadTimeMs"`
}

type LinkSection struct {
	Internal int `json:"internal"`
	External int `json:"external"`
}

// Options selects the optional parts of an audit
type Options struct {
	IncludeKeywords    bool `json:"includeKeywords"`
	KeywordLimit       int  `json:"keywordLimit,omitempty"`
	IncludeSuggestions bool `json:"includeSuggestions"`
	SkipCache          bool `json:"skipCache,omitempty"`
}

// DefaultKeywordLimit applies when Options.KeywordLimit is not positive
const DefaultKeywordLimit = 10

func (o Options) withDefaults() Options {
	if o.KeywordLimit <= 0 {
		o.KeywordLimit = DefaultKeywordLimit
	}
	return o
}

// newReport lays the extracted facts out into report sections
func newReport(pageURL string, facts extractor.StructuralFacts) *Report {
	return &Report{
		ID:  uuid.New(),
		URL: pageURL,
		Meta: MetaSection{
			Title:             facts.Title,
			TitleLength:       facts.TitleLength,
			Description:       facts.Description,
			DescriptionLength: facts.DescriptionLength,
			Canonical:         facts.Canonical,
			Robots:            facts.Robots,
			OGTitle:           facts.OGTitle,
			OGDescription:     facts.OGDescription,
			OGImage:           facts.OGImage,
		},
		Content: ContentSection{
			Lang:             facts.Lang,
			H1Count:          facts.H1Count,
			H1Texts:          facts.H1Texts,
			H2Texts:          facts.H2Texts,
			WordCount:        facts.WordCount,
			ImageCount:       facts.ImageCount,
			ImagesWithoutAlt: facts.ImagesWithoutAlt,
		},
		Technical: TechnicalSection{
			IsHTTPS:        facts.IsHTTPS,
			HasViewportTag: facts.HasViewportTag,
			HasCharsetTag:  facts.HasCharsetTag,
		},
		Links: LinkSection{
			Internal: facts.InternalLinkCount,
			External: facts.ExternalLinkCount,
		},
	}
}

// Counts returns the number of issues per severity
func (r *Report) Counts() map[rules.Severity]int {
	return rules.Count(r.Issues)
}
