package extractor

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// tagPattern matches an opening tag whose attribute values may contain '>'
// as long as they are quoted.
const tagPattern = `(?is)<%s\b(?:[^>"']|"[^"]*"|'[^']*')*>`

var (
	titleRe   = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title\s*>`)
	metaRe    = regexp.MustCompile(fmt.Sprintf(tagPattern, "meta"))
	linkTagRe = regexp.MustCompile(fmt.Sprintf(tagPattern, "link"))
	anchorRe  = regexp.MustCompile(fmt.Sprintf(tagPattern, "a"))
	imgRe     = regexp.MustCompile(fmt.Sprintf(tagPattern, "img"))
	htmlTagRe = regexp.MustCompile(fmt.Sprintf(tagPattern, "html"))
	attrRe    = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'<>` + "`" + `]+)))?`)

	commentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)
	scriptRe    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleRe     = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	headRe      = regexp.MustCompile(`(?is)<head\b[^>]*>.*?</head\s*>`)
	bodyOpenRe  = regexp.MustCompile(fmt.Sprintf(tagPattern, "body"))
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)
	anyTagRe    = regexp.MustCompile(`(?s)<[a-zA-Z/!?][^>]*>`)

	headingRes = func() [7]*regexp.Regexp {
		var res [7]*regexp.Regexp
		for level := 1; level <= 6; level++ {
			res[level] = regexp.MustCompile(fmt.Sprintf(`(?is)<h%d\b(?:[^>"']|"[^"]*"|'[^']*')*>(.*?)</h%d\s*>`, level, level))
		}
		return res
	}()
)

// PatternExtractor extracts facts with regular expressions instead of a
// tree parser. It is tolerant of broken markup but can be fooled by deeply
// nested or unbalanced tags.
type PatternExtractor struct{}

// NewPatternExtractor returns the default regex based extractor
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract implements Extractor
func (p *PatternExtractor) Extract(raw string) StructuralFacts {
	doc := clean(raw)
	facts := StructuralFacts{
		H1Texts: p.headings(doc, 1),
		H2Texts: p.headings(doc, 2),
	}
	facts.H1Count = len(facts.H1Texts)

	if m := titleRe.FindStringSubmatch(doc); m != nil {
		facts.Title = collapseSpace(html.UnescapeString(anyTagRe.ReplaceAllString(m[1], "")))
	}
	facts.TitleLength = utf8.RuneCountInString(facts.Title)

	seen := make(map[string]bool)
	for _, tag := range metaRe.FindAllString(doc, -1) {
		applyMeta(&facts, parseAttrs(tag), seen)
	}
	facts.DescriptionLength = utf8.RuneCountInString(facts.Description)

	for _, tag := range linkTagRe.FindAllString(doc, -1) {
		attrs := parseAttrs(tag)
		if facts.Canonical == "" && hasRelToken(attrs["rel"], "canonical") {
			facts.Canonical = strings.TrimSpace(attrs["href"])
		}
	}

	if tag := htmlTagRe.FindString(doc); tag != "" {
		facts.Lang = strings.TrimSpace(parseAttrs(tag)["lang"])
	}

	for _, tag := range imgRe.FindAllString(doc, -1) {
		facts.ImageCount++
		if alt, ok := parseAttrs(tag)["alt"]; !ok || strings.TrimSpace(alt) == "" {
			facts.ImagesWithoutAlt++
		}
	}

	for _, href := range p.links(doc) {
		if isExternalHref(href) {
			facts.ExternalLinkCount++
		} else {
			facts.InternalLinkCount++
		}
	}

	facts.WordCount = len(strings.Fields(p.visibleText(doc)))
	return facts
}

// Links implements Extractor
func (p *PatternExtractor) Links(raw string) []string {
	return p.links(clean(raw))
}

// VisibleText implements Extractor
func (p *PatternExtractor) VisibleText(raw string) string {
	return p.visibleText(clean(raw))
}

// Headings implements Extractor
func (p *PatternExtractor) Headings(raw string, level int) []string {
	if level < 1 || level > 6 {
		return nil
	}
	return p.headings(clean(raw), level)
}

func (p *PatternExtractor) headings(doc string, level int) []string {
	texts := make([]string, 0)
	for _, m := range headingRes[level].FindAllStringSubmatch(doc, -1) {
		texts = append(texts, collapseSpace(html.UnescapeString(anyTagRe.ReplaceAllString(m[1], ""))))
	}
	return texts
}

func (p *PatternExtractor) links(doc string) []string {
	links := make([]string, 0)
	for _, tag := range anchorRe.FindAllString(doc, -1) {
		href, ok := parseAttrs(tag)["href"]
		if !ok || !isNavigableHref(href) {
			continue
		}
		links = append(links, strings.TrimSpace(href))
	}
	return links
}

// visibleText approximates rendered text: the body section (or the whole
// document minus <head> when there is no body tag) with every tag replaced
// by a space. It is not natural-language tokenisation.
func (p *PatternExtractor) visibleText(doc string) string {
	section := doc
	if loc := bodyOpenRe.FindStringIndex(doc); loc != nil {
		section = doc[loc[1]:]
		if end := bodyCloseRe.FindStringIndex(section); end != nil {
			section = section[:end[0]]
		}
	} else {
		section = headRe.ReplaceAllString(section, " ")
		section = titleRe.ReplaceAllString(section, " ")
	}
	return collapseSpace(html.UnescapeString(anyTagRe.ReplaceAllString(section, " ")))
}

// clean drops comments, scripts and styles so nothing inside them is
// mistaken for page structure.
func clean(raw string) string {
	doc := commentRe.ReplaceAllString(raw, " ")
	doc = scriptRe.ReplaceAllString(doc, " ")
	return styleRe.ReplaceAllString(doc, " ")
}

// parseAttrs returns the attributes of a single opening tag with lowercase
// keys and entity-decoded values. The first occurrence of a key wins.
func parseAttrs(tag string) map[string]string {
	attrs := make(map[string]string)
	inner := strings.TrimPrefix(tag, "<")
	end := strings.IndexFunc(inner, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == '>'
	})
	if end < 0 {
		return attrs
	}
	inner = strings.TrimSuffix(inner[end:], ">")

	for _, m := range attrRe.FindAllStringSubmatch(inner, -1) {
		key := strings.ToLower(m[1])
		if _, dup := attrs[key]; dup {
			continue
		}
		attrs[key] = html.UnescapeString(m[2] + m[3] + m[4])
	}
	return attrs
}

// applyMeta folds one <meta> tag into facts. seen tracks which singleton
// fields have already been claimed by an earlier tag.
func applyMeta(facts *StructuralFacts, attrs map[string]string, seen map[string]bool) {
	if _, ok := attrs["charset"]; ok {
		facts.HasCharsetTag = true
	}
	content := collapseSpace(attrs["content"])
	if strings.EqualFold(attrs["http-equiv"], "content-type") && strings.Contains(strings.ToLower(content), "charset=") {
		facts.HasCharsetTag = true
	}

	// a tag may carry both name and property, e.g. twitter:title + og:title
	for _, attr := range []string{"name", "property"} {
		key := strings.ToLower(strings.TrimSpace(attrs[attr]))
		if key == "" || seen[key] {
			continue
		}
		if applyMetaKey(facts, key, content) {
			seen[key] = true
		}
	}
}

func applyMetaKey(facts *StructuralFacts, key, content string) bool {
	switch key {
	case "description":
		facts.Description = content
	case "robots":
		facts.Robots = content
	case "viewport":
		facts.HasViewportTag = true
	case "og:title":
		facts.OGTitle = content
	case "og:description":
		facts.OGDescription = content
	case "og:image":
		facts.OGImage = content
	default:
		return false
	}
	return true
}

func hasRelToken(rel, token string) bool {
	for _, t := range strings.Fields(rel) {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}
