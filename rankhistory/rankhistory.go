// Package rankhistory records per-domain keyword rank snapshots and derives
// trends over a trailing window of days.
package rankhistory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seo-optimizer/auditor/keywords"
)

// DateLayout is the wire and storage format of an entry date
const DateLayout = "2006-01-02"

var (
	// ErrInvalidEntry is returned when an entry fails validation
	ErrInvalidEntry = errors.New("invalid rank history entry")
	// ErrInvalidWindow is returned for a negative window
	ErrInvalidWindow = errors.New("window must be zero or more days")
)

// Entry is one day's rank snapshot for a domain. Ranks are 1-based search
// positions keyed by normalised keyword.
type Entry struct {
	Date  time.Time      `json:"date"`
	Ranks map[string]int `json:"ranks"`
}

// Direction of a rank change. Lower rank numbers are better.
type Direction string

const (
	Improved  Direction = "improved"
	Worsened  Direction = "worsened"
	Unchanged Direction = "unchanged"
)

// Trend compares the oldest and newest entries in a window for one keyword
type Trend struct {
	Keyword         string    `json:"keyword"`
	ChangeMagnitude int       `json:"changeMagnitude"`
	Direction       Direction `json:"direction"`
	OldestRank      int       `json:"oldestRank,omitempty"`
	NewestRank      int       `json:"newestRank,omitempty"`
}

// Store persists entries. Entries returns entries dated within [from, to]
// ordered by date, keeping append order between entries of the same date.
type Store interface {
	Append(ctx context.Context, domain string, e Entry) error
	Entries(ctx context.Context, domain string, from, to time.Time) ([]Entry, error)
}

// Day truncates t to midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", ErrInvalidEntry, s, err)
	}
	return t, nil
}

// NormalizeDomain lowercases a domain and strips a trailing dot
func NormalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// Tracker validates input and computes windows and trends over a Store
type Tracker struct {
	store Store
	now   func() time.Time
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithClock overrides the clock used to anchor windows
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker over store. A nil store uses a MemoryStore.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	t := &Tracker{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append records ranks for domain on date. Entries are never updated in place.
func (t *Tracker) Append(ctx context.Context, domain string, date time.Time, ranks map[string]int) error {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return fmt.Errorf("%w: empty domain", ErrInvalidEntry)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEntry)
	}
	if len(ranks) == 0 {
		return fmt.Errorf("%w: no ranks", ErrInvalidEntry)
	}

	clean := make(map[string]int, len(ranks))
	for kw, rank := range ranks {
		n := keywords.Normalize(kw)
		if n == "" {
			return fmt.Errorf("%w: empty keyword", ErrInvalidEntry)
		}
		if rank < 1 {
			return fmt.Errorf("%w: rank %d for %q", ErrInvalidEntry, rank, kw)
		}
		clean[n] = rank
	}
	return t.store.Append(ctx, domain, Entry{Date: Day(date), Ranks: clean})
}

// Query returns the entries dated within [today-windowDays, today]
func (t *Tracker) Query(ctx context.Context, domain string, windowDays int) ([]Entry, error) {
	if windowDays < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, windowDays)
	}
	today := Day(t.now())
	return t.store.Entries(ctx, NormalizeDomain(domain), today.AddDate(0, 0, -windowDays), today)
}

// Trend compares keyword's rank in the oldest and newest entries of the
// window. A keyword missing from either endpoint is Unchanged.
func (t *Tracker) Trend(ctx context.Context, domain, keyword string, windowDays int) (Trend, error) {
	entries, err := t.Query(ctx, domain, windowDays)
	if err != nil {
		return Trend{}, err
	}
	return trendOf(keywords.Normalize(keyword), entries), nil
}

// TrendAll computes a trend for every keyword present at either endpoint
func (t *Tracker) TrendAll(ctx context.Context, domain string, windowDays int) (map[string]Trend, error) {
	entries, err := t.Query(ctx, domain, windowDays)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Trend)
	if len(entries) == 0 {
		return out, nil
	}
	for _, e := range []Entry{entries[0], entries[len(entries)-1]} {
		for kw := range e.Ranks {
			if _, done := out[kw]; !done {
				out[kw] = trendOf(kw, entries)
			}
		}
	}
	return out, nil
}

func trendOf(keyword string, entries []Entry) Trend {
	tr := Trend{Keyword: keyword, Direction: Unchanged}
	if len(entries) == 0 {
		return tr
	}
	oldest, ok1 := entries[0].Ranks[keyword]
	newest, ok2 := entries[len(entries)-1].Ranks[keyword]
	if !ok1 || !ok2 {
		return tr
	}
	tr.OldestRank, tr.NewestRank = oldest, newest

	delta := oldest - newest
	switch {
	case delta > 0:
		tr.Direction = Improved
		tr.ChangeMagnitude = delta
	case delta < 0:
		tr.Direction = Worsened
		tr.ChangeMagnitude = -delta
	}
	return tr
}

// sortEntries orders by date, stable so same-day entries keep append order
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
}

func copyRanks(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
