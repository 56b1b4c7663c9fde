// Package prefetch holds speculative background productions of the next turn
// of a session, keyed by session and stage index.
package prefetch

import (
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an entry may be consumed after it was created.
	DefaultTTL = 10 * time.Minute

	// DefaultMaxEntries caps the number of entries held at once.
	DefaultMaxEntries = 50
)

// Key identifies the stage a task produces.
type Key struct {
	SessionID  string
	StageIndex int
}

// Entry is a task and the time it was scheduled.
type Entry struct {
	Task      *Task
	CreatedAt time.Time
}

// Cache is a mutex-guarded map of in-flight or completed prefetch tasks,
// bounded by age and by count. Eviction only happens on insert.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]Entry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache. Non-positive ttl or maxEntries fall back to the defaults.
func NewCache(ttl time.Duration, maxEntries int, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries: make(map[Key]Entry),
		ttl:     ttl,
		max:     maxEntries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Schedule stores task under key with the current time.
func (c *Cache) Schedule(key Key, task *Task) {
	c.set(key, Entry{Task: task, CreatedAt: c.now()})
}

// set evicts stale entries, makes room if the cache is full, then inserts.
func (c *Cache) set(key Key, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictStaleLocked()
	if _, exists := c.entries[key]; !exists {
		c.enforceMaxSizeLocked()
	}
	c.entries[key] = entry
}

// Take removes and returns the entry for key.
func (c *Cache) Take(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	return e, ok
}

// Delete removes the entry for key.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeleteSession removes every entry belonging to sessionID. Running tasks are
// not interrupted; their results are discarded.
func (c *Cache) DeleteSession(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.SessionID == sessionID {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// IsFresh reports whether the entry is still within the TTL.
func (c *Cache) IsFresh(e Entry) bool {
	return c.now().Sub(e.CreatedAt) <= c.ttl
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictStaleLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.CreatedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) enforceMaxSizeLocked() {
	if len(c.entries) < c.max {
		return
	}
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].CreatedAt.Before(c.entries[keys[j]].CreatedAt)
	})
	for _, k := range keys[:len(c.entries)-c.max+1] {
		delete(c.entries, k)
	}
}
