package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryOptions configures a MemoryCache
type MemoryOptions struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// DefaultMemoryOptions mirrors the report cache: 30 minutes, 1000 entries,
// swept every 5 minutes.
func DefaultMemoryOptions() MemoryOptions {
	return MemoryOptions{
		TTL:             30 * time.Minute,
		MaxEntries:      1000,
		CleanupInterval: 5 * time.Minute,
	}
}

type memoryEntry struct {
	value     []byte
	timestamp time.Time
}

// MemoryCache is an in-process Cache bounded by entry count. Expired entries
// are dropped lazily on read and by a periodic sweep; when the cache grows
// past MaxEntries the oldest entries are evicted first.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	opts    MemoryOptions
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
	closed    bool
}

// NewMemory creates a MemoryCache and starts its sweeper when
// CleanupInterval is positive.
func NewMemory(opts MemoryOptions) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		opts:    opts,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.periodicCleanup()
	}
	return c
}

func (c *MemoryCache) periodicCleanup() {
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired entries, then the oldest ones until the cache is
// within MaxEntries.
func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *MemoryCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
		}
	}

	if c.opts.MaxEntries <= 0 || len(c.entries) <= c.opts.MaxEntries {
		return
	}

	type aged struct {
		key       string
		timestamp time.Time
	}
	entries := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		entries = append(entries, aged{key, entry.timestamp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})
	for i := 0; i < len(entries)-c.opts.MaxEntries; i++ {
		delete(c.entries, entries[i].key)
	}
}

func (c *MemoryCache) expired(e memoryEntry, now time.Time) bool {
	return c.opts.TTL > 0 && now.Sub(e.timestamp) >= c.opts.TTL
}

// Get implements Cache
func (c *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false, ErrClosed
	}
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if !found || c.expired(entry, c.now()) {
		return false, nil
	}
	if err := json.Unmarshal(entry.value, dst); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

// Set implements Cache
func (c *MemoryCache) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.entries[key] = memoryEntry{value: data, timestamp: c.now()}
	if c.opts.MaxEntries > 0 && len(c.entries) > c.opts.MaxEntries {
		c.cleanupLocked()
	}
	return nil
}

// Delete implements Cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Close stops the sweeper and releases the entries
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.mu.Lock()
		c.closed = true
		c.entries = nil
		c.mu.Unlock()
	})
	return nil
}
