package rankhistory

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(_ context.Context, domain string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[domain] = append(s.entries[domain], Entry{Date: Day(e.Date), Ranks: copyRanks(e.Ranks)})
	return nil
}

func (s *MemoryStore) Entries(_ context.Context, domain string, from, to time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0)
	for _, e := range s.entries[domain] {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, Entry{Date: e.Date, Ranks: copyRanks(e.Ranks)})
	}
	sortEntries(out)
	return out, nil
}
