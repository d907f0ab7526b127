// Package monitor re-audits a watch list of URLs on a cron schedule and
// keeps the latest result for each.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/logging"
)

// Auditor runs one audit
type Auditor interface {
	Analyze(ctx context.Context, rawURL string, opts analyzer.Options) (*analyzer.Report, error)
}

type Config struct {
	Schedule        string
	URLs            []string
	IncludeKeywords bool
}

// Status is the latest outcome for one watched URL
type Status struct {
	URL           string           `json:"url"`
	CheckedAt     time.Time        `json:"checkedAt"`
	Report        *analyzer.Report `json:"report,omitempty"`
	Error         string           `json:"error,omitempty"`
	PreviousScore *int             `json:"previousScore,omitempty"`
}

// Monitor owns the cron scheduler. Start and Stop may each be called once.
type Monitor struct {
	auditor Auditor
	cfg     Config
	logger  logging.Logger
	cron    *cron.Cron
	now     func() time.Time

	mu     sync.RWMutex
	latest map[string]Status

	ctx    context.Context
	cancel context.CancelFunc
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates the schedule and builds a stopped Monitor
func New(a Auditor, cfg Config, logger logging.Logger) (*Monitor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(cfg.URLs) == 0 {
		return nil, errors.New("monitor: no URLs to watch")
	}
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("monitor: invalid schedule %q: %w", cfg.Schedule, err)
	}

	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		auditor: a,
		cfg:     cfg,
		logger:  logger,
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		now:     time.Now,
		latest:  make(map[string]Status),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start schedules the watch list and starts the scheduler
func (m *Monitor) Start() error {
	if _, err := m.cron.AddFunc(m.cfg.Schedule, func() { m.RunOnce(m.ctx) }); err != nil {
		return fmt.Errorf("monitor: schedule: %w", err)
	}
	m.cron.Start()
	m.logger.Info("Monitor started",
		logging.String("schedule", m.cfg.Schedule),
		logging.Int("urls", len(m.cfg.URLs)))
	return nil
}

// Stop cancels a running pass and waits for it to return
func (m *Monitor) Stop() {
	m.cancel()
	<-m.cron.Stop().Done()
	m.logger.Info("Monitor stopped")
}

// RunOnce audits every watched URL, bypassing the report cache
func (m *Monitor) RunOnce(ctx context.Context) {
	opts := analyzer.Options{IncludeKeywords: m.cfg.IncludeKeywords, SkipCache: true}
	for _, u := range m.cfg.URLs {
		if ctx.Err() != nil {
			return
		}
		status := Status{URL: u}
		report, err := m.auditor.Analyze(ctx, u, opts)
		status.CheckedAt = m.now().UTC()
		if err != nil {
			status.Error = reason(err)
			m.logger.Warn("Monitored audit failed", logging.String("url", u), logging.Err(err))
		} else {
			status.Report = report
		}
		m.store(status)
	}
}

func (m *Monitor) store(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.latest[s.URL]
	if ok && prev.Report != nil {
		score := prev.Report.Score
		s.PreviousScore = &score
		if s.Report != nil && s.Report.Score < score {
			m.logger.Warn("Score dropped",
				logging.String("url", s.URL),
				logging.Int("from", score),
				logging.Int("to", s.Report.Score))
		}
	}
	m.latest[s.URL] = s
}

// Latest returns the last status of each watched URL in watch-list order.
// URLs not yet checked are omitted.
func (m *Monitor) Latest() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Status, 0, len(m.latest))
	for _, u := range m.cfg.URLs {
		if s, ok := m.latest[u]; ok {
			out = append(out, s)
		}
	}
	return out
}

func reason(err error) string {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		return fe.Reason()
	}
	return err.Error()
}

// cronLogger adapts Logger to cron.Logger
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, logging.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, logging.Err(err), logging.Any("details", keysAndValues))
}
