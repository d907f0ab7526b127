// Package cmd implements the seo-auditor command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/seo-optimizer/auditor/config"
	"github.com/seo-optimizer/auditor/logging"
)

const defaultConfigPath = "config.yml"

// app carries state shared by every subcommand once PersistentPreRunE ran
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger logging.Logger
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "seo-auditor",
		Short: "Audit web pages for on-page SEO problems",
		Long: `seo-auditor fetches pages and scores them against on-page SEO rules,
compares them with competitors, checks their links and tracks keyword
rankings over time.

Run "seo-auditor serve" for the HTTP API, or use the audit commands directly:
  seo-auditor audit https://example.com --keywords
  seo-auditor compare https://example.com https://competitor.com
  seo-auditor rank trend example.com --window 30`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the YAML config file (default: $CONFIG_PATH or config.yml when present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newAuditCmd(a),
		newCompareCmd(a),
		newLinksCmd(a),
		newRankCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		path = config.Path(defaultConfigPath)
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger.With(logging.String("command", cmd.Name()))
	return nil
}

// deps builds the service graph for one command run
func (a *app) deps() (*deps, error) {
	return newDeps(a.cfg, a.logger)
}

// openOutput returns stdout or the named file
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
