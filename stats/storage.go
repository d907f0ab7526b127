// Package stats keeps monthly usage counters for the auditor and persists
// them as a small JSON file.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/seo-optimizer/auditor/logging"
)

const (
	monthLayout   = "2006-01"
	fileName      = "stats.json"
	flushInterval = 5 * time.Minute
	writeDebounce = time.Minute
)

// MonthlyStats represents usage for one calendar month
type MonthlyStats struct {
	Audits            int       `json:"audits"`
	AuditFailures     int       `json:"audit_failures"`
	ReportCacheHits   int       `json:"report_cache_hits"`
	ReportCacheMisses int       `json:"report_cache_misses"`
	LinkProbes        int       `json:"link_probes"`
	LinkCacheHits     int       `json:"link_cache_hits"`
	BrokenLinks       int       `json:"broken_links"`
	Comparisons       int       `json:"comparisons"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Delta is added to the current month's counters
type Delta struct {
	Audits            int
	AuditFailures     int
	ReportCacheHits   int
	ReportCacheMisses int
	LinkProbes        int
	LinkCacheHits     int
	BrokenLinks       int
	Comparisons       int
}

// Recorder accepts usage deltas. *Storage implements it; a nil Recorder
// field in a caller means usage is not tracked.
type Recorder interface {
	Add(d Delta)
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	shutdown    sync.Once
	now         func() time.Time
	logger      logging.Logger
}

// NewStorage loads dataDir/stats.json if present and starts the background writer
func NewStorage(dataDir string, logger logging.Logger) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, fileName),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
		logger:      logger,
	}

	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()
	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := json.Unmarshal(data, &s.stats); err != nil {
		return err
	}
	// a "null" file or month decodes to nil
	if s.stats == nil {
		s.stats = make(map[string]*MonthlyStats)
	}
	for month, m := range s.stats {
		if m == nil {
			delete(s.stats, month)
		}
	}
	return nil
}

// Flush writes the counters to disk through a temp file and rename
func (s *Storage) Flush() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func (s *Storage) backgroundWriter() {
	defer close(s.stopped)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
		case <-ticker.C:
		case <-s.done:
			return
		}
		if err := s.Flush(); err != nil {
			s.logger.Warn("Failed to persist statistics", logging.Err(err))
		}
	}
}

func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
	}
}

func (s *Storage) currentMonth() string {
	return s.now().Format(monthLayout)
}

// Add implements Recorder
func (s *Storage) Add(d Delta) {
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, exists := s.stats[month]
	if !exists {
		m = &MonthlyStats{}
		s.stats[month] = m
	}
	m.Audits += d.Audits
	m.AuditFailures += d.AuditFailures
	m.ReportCacheHits += d.ReportCacheHits
	m.ReportCacheMisses += d.ReportCacheMisses
	m.LinkProbes += d.LinkProbes
	m.LinkCacheHits += d.LinkCacheHits
	m.BrokenLinks += d.BrokenLinks
	m.Comparisons += d.Comparisons
	m.LastUpdated = s.now()

	if s.now().Sub(s.lastWrite) > writeDebounce {
		s.requestWrite()
		s.lastWrite = s.now()
	}
}

// Current returns the counters for the current month
func (s *Storage) Current() MonthlyStats {
	m, _ := s.Month(s.currentMonth())
	return m
}

// Month returns the counters for a "YYYY-MM" key
func (s *Storage) Month(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if m, exists := s.stats[yearMonth]; exists {
		return *m, true
	}
	return MonthlyStats{}, false
}

// Months lists months with statistics, newest first
func (s *Storage) Months() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// Cleanup keeps the current month and the retainMonths-1 before it
func (s *Storage) Cleanup(retainMonths int) {
	if retainMonths < 1 {
		retainMonths = 1
	}
	now := s.now()
	keep := make(map[string]bool, retainMonths)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < retainMonths; i++ {
		keep[first.AddDate(0, -i, 0).Format(monthLayout)] = true
	}

	s.mutex.Lock()
	removed := 0
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
			removed++
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
	s.logger.Debug("Pruned statistics", logging.Int("removed", removed), logging.Int("retain_months", retainMonths))
}

// Shutdown stops the background writer and writes the counters one last time
func (s *Storage) Shutdown() error {
	var err error
	s.shutdown.Do(func() {
		close(s.done)
		<-s.stopped
		err = s.Flush()
	})
	return err
}
