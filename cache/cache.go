// Package cache is an in-memory TTL cache for extraction responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/glimpse/models"
)

// entry holds a cached response and its expiry deadline.
type entry struct {
	response  *models.ExtractContentResponse
	expiresAt time.Time
}

// Cache stores fully-assembled responses keyed by (URL, extraction
// mode). Hits return the stored response unchanged. Safe for
// concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
}

// New creates a Cache holding at most maxEntries responses, each
// living for ttl. A background goroutine sweeps expired entries.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}

	go c.cleanupLoop()
	return c
}

// Key derives the cache key from the normalized URL and the extraction
// mode. Identical URLs requested with and without AI never share an
// entry.
func Key(url string, useAI bool) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatBool(useAI)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for key, or false when the key is
// absent or its entry has expired. Expired entries count as misses
// even before the sweeper reclaims them.
func (c *Cache) Get(key string) (*models.ExtractContentResponse, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.response, true
}

// Set stores a response. At capacity, a random entry is evicted to
// make room (map iteration is random in Go). Overwriting an existing
// key needs no room, so nothing is evicted in that case.
func (c *Cache) Set(key string, resp *models.ExtractContentResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		response:  resp,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Len reports the current number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// cleanupLoop reclaims expired entries once per TTL period.
func (c *Cache) cleanupLoop() {
	interval := c.ttl
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for k, e := range c.store {
			if now.After(e.expiresAt) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
