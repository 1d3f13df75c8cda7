// Package cache provides a content-addressed cache for compiled stories.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/tale-forge/inkweave/pkg/ink"
)

// entry holds a single compiled story plus its bookkeeping.
type entry struct {
	story     *ink.Story
	createdAt time.Time
	expiresAt time.Time
	hits      atomic.Uint64
}

func (e *entry) isExpired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// Key is a blake2b-256 digest of a story's source text, used to
// address a compiled *ink.Story without caring what path it came from.
type Key [32]byte

// KeyOf hashes raw Ink source into a cache key. Two documents with
// byte-identical text always collide onto the same entry, which is the
// point: re-parsing an unchanged INCLUDE tree is wasted work.
func KeyOf(source string) Key {
	return blake2b.Sum256([]byte(source))
}

// StoryCache is a single-tier, mutex-guarded cache of compiled stories
// keyed by content hash. Unlike a path-keyed cache it survives file
// moves and renames for free, and it can't serve a stale compile
// result after an edit since the key changes with the content.
type StoryCache struct {
	mu         sync.RWMutex
	items      map[Key]*entry
	maxEntries int
	ttl        time.Duration

	hits    atomic.Uint64
	misses  atomic.Uint64
	evicts  atomic.Uint64
}

// NewStoryCache creates a cache bounded to maxEntries compiled stories,
// each expiring ttl after insertion unless ttl is zero (no expiry).
func NewStoryCache(maxEntries int, ttl time.Duration) *StoryCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &StoryCache{
		items:      make(map[Key]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the compiled story for source, if present and unexpired.
func (c *StoryCache) Get(source string) (*ink.Story, bool) {
	key := KeyOf(source)

	c.mu.RLock()
	e, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		c.misses.Add(1)
		return nil, false
	}
	if e.isExpired() {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		c.misses.Add(1)
		c.evicts.Add(1)
		return nil, false
	}

	e.hits.Add(1)
	c.hits.Add(1)
	return e.story, true
}

// Put stores a compiled story under the hash of its source text.
func (c *StoryCache) Put(source string, story *ink.Story) {
	key := KeyOf(source)

	e := &entry{
		story:     story,
		createdAt: time.Now(),
	}
	if c.ttl > 0 {
		e.expiresAt = e.createdAt.Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxEntries {
		c.evictLocked()
	}
	c.items[key] = e
}

// evictLocked drops the least-hit, oldest entry. Must hold c.mu.
func (c *StoryCache) evictLocked() {
	var victim Key
	var found bool
	var minHits uint64 = ^uint64(0)
	var oldest time.Time

	for k, e := range c.items {
		hits := e.hits.Load()
		if !found || hits < minHits || (hits == minHits && e.createdAt.Before(oldest)) {
			victim = k
			minHits = hits
			oldest = e.createdAt
			found = true
		}
	}

	if found {
		delete(c.items, victim)
		c.evicts.Add(1)
	}
}

// Delete drops the entry for source, if any.
func (c *StoryCache) Delete(source string) {
	key := KeyOf(source)
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear empties the cache.
func (c *StoryCache) Clear() {
	c.mu.Lock()
	c.items = make(map[Key]*entry)
	c.mu.Unlock()
}

// Len returns the number of cached stories.
func (c *StoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Metrics reports cumulative hit/miss/eviction counters.
type Metrics struct {
	Hits    uint64
	Misses  uint64
	Evicts  uint64
	Entries int
}

// Metrics returns a snapshot of the cache's counters.
func (c *StoryCache) Metrics() Metrics {
	return Metrics{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Evicts:  c.evicts.Load(),
		Entries: c.Len(),
	}
}
