// Package report renders audit results for people and spreadsheets.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/seo-optimizer/auditor/analyzer"
)

// Format is an output format
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatTable Format = "table"
)

// ParseFormat accepts a format name in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX, FormatTable:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

var issueColumns = []string{"Rule", "Severity", "Category", "Message", "Suggestion"}

// Write renders r to w in format
func Write(w io.Writer, r *analyzer.Report, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatTable:
		return RenderReport(w, r)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteJSON writes any value as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteCSV writes one row per issue, preceded by a UTF-8 BOM for Excel
func WriteCSV(w io.Writer, r *analyzer.Report) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(issueColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, is := range r.Issues {
		row := []string{is.RuleID, string(is.Severity), string(is.Category), is.Message, is.Suggestion}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes a workbook with Summary, Issues and Keywords sheets
func WriteXLSX(w io.Writer, r *analyzer.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"00C853"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	summary := [][]any{
		{"URL", r.URL},
		{"Final URL", r.FinalURL},
		{"Score", r.Score},
		{"Fetched", r.FetchedAt.Format(time.RFC3339)},
		{"Rule set", r.RuleSetVersion},
		{"Title", r.Meta.Title},
		{"Description", r.Meta.Description},
		{"Word count", r.Content.WordCount},
		{"Internal links", r.Links.Internal},
		{"External links", r.Links.External},
		{"HTTPS", r.Technical.IsHTTPS},
		{"Page size (bytes)", r.Technical.PageSize},
		{"Load time (ms)", r.Technical.LoadTimeMs},
	}
	for i, row := range summary {
		if err := f.SetSheetRow("Summary", "A"+strconv.Itoa(i+1), &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	f.SetColWidth("Summary", "A", "A", 20)
	f.SetColWidth("Summary", "B", "B", 60)

	issues := make([][]any, 0, len(r.Issues))
	for _, is := range r.Issues {
		issues = append(issues, []any{is.RuleID, string(is.Severity), string(is.Category), is.Message, is.Suggestion})
	}
	if err := writeSheet(f, "Issues", issueColumns, issues, headerStyle); err != nil {
		return err
	}

	kws := make([][]any, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		kws = append(kws, []any{kw.Text, kw.Frequency, string(kw.Importance), kw.InTitle, kw.InHeading, kw.InMeta})
	}
	kwColumns := []string{"Keyword", "Frequency", "Importance", "In title", "In heading", "In meta"}
	if err := writeSheet(f, "Keywords", kwColumns, kws, headerStyle); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, columns []string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(name, cell, col)
		f.SetCellStyle(name, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(col) + 5)
		if width < 15 {
			width = 15
		}
		f.SetColWidth(name, colName, colName, width)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	return nil
}
