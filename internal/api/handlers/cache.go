package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
)

type cacheEntry struct {
	result    *simulation.Result
	expiresAt time.Time
}

// RunCache keeps finished runs in memory so their ledgers can be fetched
// after the POST that produced them. Entries expire after ttl.
type RunCache struct {
	mu    sync.RWMutex
	store map[uuid.UUID]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewRunCache(ttl time.Duration) *RunCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunCache{store: map[uuid.UUID]*cacheEntry{}, ttl: ttl, now: time.Now}
}

func (c *RunCache) Get(id uuid.UUID) (*simulation.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[id]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.result, true
}

func (c *RunCache) Set(id uuid.UUID, res *simulation.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[id] = &cacheEntry{result: res, expiresAt: c.now().Add(c.ttl)}
}

// Cleanup drops expired entries and reports how many it dropped.
func (c *RunCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for id, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, id)
			n++
		}
	}
	return n
}

func (c *RunCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
