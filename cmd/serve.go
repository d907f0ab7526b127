package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/seo-optimizer/auditor/api"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/middleware"
	"github.com/seo-optimizer/auditor/monitor"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	statsCleanupInterval   = 24 * time.Hour
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default: from config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger
	gin.SetMode(cfg.Server.Mode)

	d, err := a.deps()
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.openRanks(ctx, false); err != nil {
		return fmt.Errorf("open rank history: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	routes := api.Deps{
		Auditor:     d.analyzer,
		Comparator:  d.comparator,
		Links:       d.links,
		Ranks:       d.ranks,
		Stats:       d.stats,
		Metrics:     d.metrics,
		Logger:      logger,
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSOrigins,

		KeywordLimit: cfg.Audit.KeywordLimit,
	}

	if cfg.Monitor.Enabled {
		mon, err := monitor.New(d.analyzer, monitor.Config{
			Schedule:        cfg.Monitor.Schedule,
			URLs:            cfg.Monitor.URLs,
			IncludeKeywords: cfg.Monitor.IncludeKeywords,
		}, logger.With(logging.String("component", "monitor")))
		if err != nil {
			return err
		}
		if err := mon.Start(); err != nil {
			return err
		}
		defer mon.Stop()
		routes.Monitor = mon
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(routes),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go a.housekeeping(ctx, limiter, d)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logging.String("addr", srv.Addr), logging.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// housekeeping evicts idle rate limiter buckets and expired statistics
func (a *app) housekeeping(ctx context.Context, limiter *middleware.RateLimiter, d *deps) {
	limiterTicker := time.NewTicker(limiterCleanupInterval)
	defer limiterTicker.Stop()
	statsTicker := time.NewTicker(statsCleanupInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-limiterTicker.C:
			limiter.Cleanup()
		case <-statsTicker.C:
			d.stats.Cleanup(a.cfg.Stats.RetainMonths)
		}
	}
}
