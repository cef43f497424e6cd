package application

import (
	"sync"
	"time"

	"github.com/example/room-scheduler/internal/scheduler"
)

// previewCache stores recently computed scheduling results keyed by request
// fingerprint and snapshot digest. A key only repeats when the request and
// the room's bookings are unchanged, so entries never go stale; the TTL only
// bounds memory.
type previewCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]previewCacheEntry
}

type previewCacheEntry struct {
	result    scheduler.SchedulingResult
	expiresAt time.Time
}

func newPreviewCache(ttl time.Duration, maxEntries int, now func() time.Time) *previewCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &previewCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]previewCacheEntry),
	}
}

func (c *previewCache) Get(key string) (scheduler.SchedulingResult, bool) {
	if c == nil {
		return scheduler.SchedulingResult{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return scheduler.SchedulingResult{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return scheduler.SchedulingResult{}, false
	}
	return cloneResult(entry.result), true
}

func (c *previewCache) Store(key string, result scheduler.SchedulingResult) {
	if c == nil {
		return
	}
	cloned := cloneResult(result)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = previewCacheEntry{result: cloned, expiresAt: expiry}
}

func (c *previewCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *previewCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneResult(result scheduler.SchedulingResult) scheduler.SchedulingResult {
	if len(result.Occurrences) > 0 {
		occurrences := make([]scheduler.Occurrence, len(result.Occurrences))
		copy(occurrences, result.Occurrences)
		result.Occurrences = occurrences
	}
	return result
}

func previewCacheKey(requestID, snapshotDigest string, notBefore time.Time) string {
	return requestID + "|" + snapshotDigest + "|" + notBefore.UTC().Format(time.RFC3339)
}
