// Package cache holds model answers for frames that were already asked the
// same question.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// entry wraps a cached answer with expiry and insertion order tracking.
type entry struct {
	answer    string
	expiry    time.Time
	insertIdx int64
}

// AnswerCache maps (image digest, question) to the model's answer.
// Thread-safe with sync.RWMutex.
type AnswerCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// New creates an AnswerCache with the given TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *AnswerCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &AnswerCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey builds a cache key from the raw image bytes and the question.
func MakeKey(image []byte, question string) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:]) + ":" + question
}

// Get returns a cached answer if found and not expired.
func (c *AnswerCache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if c.now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && c.now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return "", false
	}

	return e.answer, true
}

// Set stores an answer. Evicts the oldest entry if at capacity.
func (c *AnswerCache) Set(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		answer:    answer,
		expiry:    c.now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// Len returns the number of stored entries, expired ones included.
func (c *AnswerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *AnswerCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
