package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/report"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		opts   analyzer.Options
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audit a single page",
		Example: `  seo-auditor audit https://example.com
  seo-auditor audit https://example.com --keywords --format xlsx -o report.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == report.FormatXLSX && output == "" {
				return errors.New("--format xlsx needs --output")
			}
			if opts.KeywordLimit == 0 {
				opts.KeywordLimit = a.cfg.Audit.KeywordLimit
			}

			d, err := a.deps()
			if err != nil {
				return err
			}
			defer d.Close()

			r, err := d.analyzer.Analyze(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := report.Write(w, r, f); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().BoolVarP(&opts.IncludeKeywords, "keywords", "k", false, "Include keyword analysis")
	cmd.Flags().IntVar(&opts.KeywordLimit, "limit", 0, "Number of keywords to report (default: from config)")
	cmd.Flags().BoolVar(&opts.IncludeSuggestions, "suggest", false, "Ask the configured AI provider for suggestions")
	cmd.Flags().BoolVar(&opts.SkipCache, "no-cache", false, "Bypass the report cache")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv, xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
