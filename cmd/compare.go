package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/report"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		self     string
		keywords []string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "compare <competitor-url>...",
		Short: "Compare competitor pages against your keywords",
		Long: `compare fetches up to five competitor pages and reports their word counts,
top keywords and the keyword gap against your own keyword list. The list
comes from --keywords, or from auditing the page given with --self.`,
		Example: `  seo-auditor compare --self https://example.com https://rival.com https://other.com
  seo-auditor compare -w espresso,latte https://rival.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.deps()
			if err != nil {
				return err
			}
			defer d.Close()

			own := keywords
			if self != "" {
				r, err := d.analyzer.Analyze(cmd.Context(), self, analyzer.Options{
					IncludeKeywords: true,
					KeywordLimit:    a.cfg.Competitor.TopKeywords,
				})
				if err != nil {
					return fmt.Errorf("audit %s: %w", self, err)
				}
				for _, kw := range r.Keywords {
					own = append(own, kw.Text)
				}
			}

			result, err := d.comparator.Compare(cmd.Context(), own, args)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), asJSON, result, func(w io.Writer) error {
				return report.RenderComparison(w, result)
			})
		},
	}
	cmd.Flags().StringVar(&self, "self", "", "Your page; its top keywords form the comparison list")
	cmd.Flags().StringSliceVarP(&keywords, "keywords", "w", nil, "Your keywords, comma separated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// render prints v as JSON or through the table renderer
func render(w io.Writer, asJSON bool, v any, table func(io.Writer) error) error {
	if asJSON {
		return report.WriteJSON(w, v)
	}
	return table(w)
}
