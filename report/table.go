package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/linkaudit"
	"github.com/seo-optimizer/auditor/rankhistory"
	"github.com/seo-optimizer/auditor/rules"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// RenderReport prints the audit summary, issues and keywords
func RenderReport(w io.Writer, r *analyzer.Report) error {
	counts := r.Counts()
	t := newTable(w, "Audit of "+r.URL)
	t.AppendRows([]table.Row{
		{"Score", r.Score},
		{"Errors", counts[rules.SeverityError]},
		{"Warnings", counts[rules.SeverityWarning]},
		{"Info", counts[rules.SeverityInfo]},
		{"Title", r.Meta.Title},
		{"Words", r.Content.WordCount},
		{"Links (int/ext)", fmt.Sprintf("%d / %d", r.Links.Internal, r.Links.External)},
		{"Page size", fmt.Sprintf("%.1f KB", float64(r.Technical.PageSize)/1024)},
		{"Load time", fmt.Sprintf("%d ms", r.Technical.LoadTimeMs)},
		{"Rule set", r.RuleSetVersion},
	})
	if r.Cached {
		t.AppendRow(table.Row{"Cached", "yes"})
	}
	t.Render()

	if len(r.Issues) > 0 {
		it := newTable(w, "Issues")
		it.AppendHeader(table.Row{"Severity", "Category", "Rule", "Message"})
		for _, is := range r.Issues {
			it.AppendRow(table.Row{string(is.Severity), string(is.Category), is.RuleID, is.Message})
		}
		it.Render()
	}

	if len(r.Keywords) > 0 {
		kt := newTable(w, "Keywords")
		kt.AppendHeader(table.Row{"Keyword", "Frequency", "Importance"})
		kt.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
		for _, kw := range r.Keywords {
			kt.AppendRow(table.Row{kw.Text, kw.Frequency, string(kw.Importance)})
		}
		kt.Render()
	}

	if len(r.AISuggestions) > 0 {
		st := newTable(w, "Suggestions")
		for i, s := range r.AISuggestions {
			st.AppendRow(table.Row{i + 1, s})
		}
		st.Render()
	}
	return nil
}

// RenderComparison prints competitor profiles, failures and the keyword gap
func RenderComparison(w io.Writer, c *competitor.Comparison) error {
	t := newTable(w, "Competitors")
	t.AppendHeader(table.Row{"Domain", "Words", "Title length", "Top keywords", "Matched"})
	for _, p := range c.Competitors {
		top := make([]string, 0, 5)
		for i, kw := range p.TopKeywords {
			if i == 5 {
				break
			}
			top = append(top, kw.Text)
		}
		t.AppendRow(table.Row{p.Domain, p.WordCount, p.Facts.TitleLength, joinShort(top), len(p.MatchedSelfKeywords)})
	}
	for _, f := range c.Failed {
		t.AppendRow(table.Row{f.URL, "-", "-", "failed: " + f.Reason, "-"})
	}
	t.Render()

	gt := newTable(w, "Keyword gap")
	gt.AppendHeader(table.Row{"Shared", "Only yours", "Only theirs"})
	gt.AppendRow(table.Row{joinShort(c.Gap.Shared), joinShort(c.Gap.SelfOnly), joinShort(c.Gap.CompetitorOnly)})
	gt.Render()
	return nil
}

// RenderLinks prints one row per probed link
func RenderLinks(w io.Writer, results []linkaudit.LinkCheckResult) error {
	t := newTable(w, "Links")
	t.AppendHeader(table.Row{"Status", "Type", "URL", "Note"})
	broken := 0
	for _, r := range results {
		status := "-"
		if r.HTTPStatus != nil {
			status = strconv.Itoa(*r.HTTPStatus)
		}
		note := r.Error
		if r.RedirectTarget != "" {
			note = "-> " + r.RedirectTarget
		}
		if !r.IsWorking {
			broken++
		}
		t.AppendRow(table.Row{status, string(r.Type), r.URL, note})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d links, %d broken", len(results), broken), ""})
	t.Render()
	return nil
}

// RenderEntries prints rank history entries, one column per keyword
func RenderEntries(w io.Writer, domain string, entries []rankhistory.Entry) error {
	kwSet := make(map[string]bool)
	for _, e := range entries {
		for kw := range e.Ranks {
			kwSet[kw] = true
		}
	}
	kws := make([]string, 0, len(kwSet))
	for kw := range kwSet {
		kws = append(kws, kw)
	}
	sort.Strings(kws)

	t := newTable(w, "Rank history for "+domain)
	header := table.Row{"Date"}
	for _, kw := range kws {
		header = append(header, kw)
	}
	t.AppendHeader(header)
	for _, e := range entries {
		row := table.Row{e.Date.Format(rankhistory.DateLayout)}
		for _, kw := range kws {
			if rank, ok := e.Ranks[kw]; ok {
				row = append(row, rank)
			} else {
				row = append(row, "-")
			}
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// RenderTrends prints trends sorted by keyword
func RenderTrends(w io.Writer, trends map[string]rankhistory.Trend) error {
	kws := make([]string, 0, len(trends))
	for kw := range trends {
		kws = append(kws, kw)
	}
	sort.Strings(kws)

	t := newTable(w, "Trends")
	t.AppendHeader(table.Row{"Keyword", "Direction", "Change", "Oldest", "Newest"})
	for _, kw := range kws {
		tr := trends[kw]
		t.AppendRow(table.Row{kw, string(tr.Direction), tr.ChangeMagnitude, rankCell(tr.OldestRank), rankCell(tr.NewestRank)})
	}
	t.Render()
	return nil
}

func rankCell(rank int) any {
	if rank == 0 {
		return "-"
	}
	return rank
}

func joinShort(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	const limit = 8
	out := ""
	for i, s := range items {
		if i == limit {
			return out + fmt.Sprintf(" (+%d)", len(items)-limit)
		}
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
