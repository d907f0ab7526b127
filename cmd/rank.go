package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seo-optimizer/auditor/rankhistory"
	"github.com/seo-optimizer/auditor/report"
)

func newRankCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Record and inspect keyword rank history",
		Long: `rank stores dated keyword rankings per domain and reports how they moved.
With the memory driver configured, history is kept in SQLite under the
statistics directory so separate runs share it.`,
	}
	cmd.AddCommand(newRankAppendCmd(a), newRankQueryCmd(a), newRankTrendCmd(a))
	return cmd
}

// withRanks opens the persistent rank tracker for one command run
func (a *app) withRanks(cmd *cobra.Command, fn func(*rankhistory.Tracker) error) error {
	d, err := a.deps()
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.openRanks(cmd.Context(), true); err != nil {
		return fmt.Errorf("open rank history: %w", err)
	}
	return fn(d.ranks)
}

func newRankAppendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "append <domain> <date> <keyword=rank>...",
		Short:   "Record the ranks observed on a date",
		Example: `  seo-auditor rank append example.com 2024-01-30 "seo tools=4" audit=12`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := rankhistory.ParseDate(args[1])
			if err != nil {
				return err
			}
			ranks, err := parseRanks(args[2:])
			if err != nil {
				return err
			}
			return a.withRanks(cmd, func(t *rankhistory.Tracker) error {
				if err := t.Append(cmd.Context(), args[0], date, ranks); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d keywords for %s on %s\n",
					len(ranks), rankhistory.NormalizeDomain(args[0]), date.Format(rankhistory.DateLayout))
				return nil
			})
		},
	}
}

func newRankQueryCmd(a *app) *cobra.Command {
	var (
		window int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "query <domain>",
		Short: "List the entries recorded in the window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := rankhistory.NormalizeDomain(args[0])
			return a.withRanks(cmd, func(t *rankhistory.Tracker) error {
				entries, err := t.Query(cmd.Context(), domain, window)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), asJSON, entries, func(w io.Writer) error {
					return report.RenderEntries(w, domain, entries)
				})
			})
		},
	}
	cmd.Flags().IntVar(&window, "window", 30, "Window in days, ending today")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newRankTrendCmd(a *app) *cobra.Command {
	var (
		window  int
		keyword string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "trend <domain>",
		Short: "Compare the oldest and newest ranks in the window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := rankhistory.NormalizeDomain(args[0])
			return a.withRanks(cmd, func(t *rankhistory.Tracker) error {
				var trends map[string]rankhistory.Trend
				if keyword != "" {
					tr, err := t.Trend(cmd.Context(), domain, keyword, window)
					if err != nil {
						return err
					}
					trends = map[string]rankhistory.Trend{tr.Keyword: tr}
				} else {
					var err error
					if trends, err = t.TrendAll(cmd.Context(), domain, window); err != nil {
						return err
					}
				}
				return render(cmd.OutOrStdout(), asJSON, trends, func(w io.Writer) error {
					return report.RenderTrends(w, trends)
				})
			})
		},
	}
	cmd.Flags().IntVar(&window, "window", 30, "Window in days, ending today")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Report a single keyword")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// parseRanks reads keyword=rank pairs. The last '=' separates the rank so
// keywords may contain '='.
func parseRanks(args []string) (map[string]int, error) {
	ranks := make(map[string]int, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, "=")
		if i <= 0 {
			return nil, fmt.Errorf("expected keyword=rank, got %q", arg)
		}
		rank, err := strconv.Atoi(strings.TrimSpace(arg[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("rank for %q: %w", arg[:i], err)
		}
		ranks[strings.TrimSpace(arg[:i])] = rank
	}
	return ranks, nil
}
