package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/seo-optimizer/auditor/report"
)

func newLinksCmd(a *app) *cobra.Command {
	var (
		maxLinks   int
		asJSON     bool
		failBroken bool
	)
	cmd := &cobra.Command{
		Use:   "links <url>",
		Short: "Check the links of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.deps()
			if err != nil {
				return err
			}
			defer d.Close()

			results, err := d.links.Audit(cmd.Context(), args[0], maxLinks)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), asJSON, results, func(w io.Writer) error {
				return report.RenderLinks(w, results)
			}); err != nil {
				return err
			}

			if failBroken {
				for _, r := range results {
					if !r.IsWorking {
						return fmt.Errorf("broken links found on %s", args[0])
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxLinks, "max", "m", 0, "Maximum links to probe (default: from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&failBroken, "fail-on-broken", false, "Exit non-zero when any link is broken")
	return cmd
}
