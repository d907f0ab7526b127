package extractor

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

// DOMExtractor implements Extractor on top of a parsed document tree.
// It honours the same contract as PatternExtractor and is the drop-in
// replacement when markup is too irregular for pattern matching.
type DOMExtractor struct{}

// NewDOMExtractor returns a goquery backed extractor
func NewDOMExtractor() *DOMExtractor {
	return &DOMExtractor{}
}

func (d *DOMExtractor) parse(raw string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		// Only reader errors reach here; fall back to an empty tree.
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	doc.Find("script, style").Remove()
	return doc
}

// Extract implements Extractor
func (d *DOMExtractor) Extract(raw string) StructuralFacts {
	doc := d.parse(raw)
	facts := StructuralFacts{
		H1Texts: d.headings(doc, "h1"),
		H2Texts: d.headings(doc, "h2"),
	}
	facts.H1Count = len(facts.H1Texts)

	facts.Title = collapseSpace(doc.Find("title").First().Text())
	facts.TitleLength = utf8.RuneCountInString(facts.Title)

	seen := make(map[string]bool)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		applyMeta(&facts, nodeAttrs(s), seen)
	})
	facts.DescriptionLength = utf8.RuneCountInString(facts.Description)

	doc.Find("link").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if hasRelToken(s.AttrOr("rel", ""), "canonical") {
			facts.Canonical = strings.TrimSpace(s.AttrOr("href", ""))
			return false
		}
		return true
	})

	facts.Lang = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		facts.ImageCount++
		if alt, ok := s.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			facts.ImagesWithoutAlt++
		}
	})

	for _, href := range d.links(doc) {
		if isExternalHref(href) {
			facts.ExternalLinkCount++
		} else {
			facts.InternalLinkCount++
		}
	}

	facts.WordCount = len(strings.Fields(d.visibleText(doc)))
	return facts
}

// Links implements Extractor
func (d *DOMExtractor) Links(raw string) []string {
	return d.links(d.parse(raw))
}

// VisibleText implements Extractor
func (d *DOMExtractor) VisibleText(raw string) string {
	return d.visibleText(d.parse(raw))
}

// Headings implements Extractor
func (d *DOMExtractor) Headings(raw string, level int) []string {
	if level < 1 || level > 6 {
		return nil
	}
	return d.headings(d.parse(raw), "h"+strconv.Itoa(level))
}

func (d *DOMExtractor) headings(doc *goquery.Document, tag string) []string {
	texts := make([]string, 0)
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, collapseSpace(s.Text()))
	})
	return texts
}

func (d *DOMExtractor) links(doc *goquery.Document) []string {
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if isNavigableHref(href) {
			links = append(links, strings.TrimSpace(href))
		}
	})
	return links
}

// visibleText joins body text nodes with spaces so tag boundaries act as
// word boundaries, matching the pattern extractor.
func (d *DOMExtractor) visibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Find("body").Nodes {
		walk(n)
	}
	return collapseSpace(b.String())
}

// nodeAttrs copies the attributes of the first node, first key wins
func nodeAttrs(s *goquery.Selection) map[string]string {
	attrs := make(map[string]string)
	if len(s.Nodes) == 0 {
		return attrs
	}
	for _, a := range s.Nodes[0].Attr {
		key := strings.ToLower(a.Key)
		if _, dup := attrs[key]; !dup {
			attrs[key] = a.Val
		}
	}
	return attrs
}
