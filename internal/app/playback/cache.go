// Package playback holds the latest playback snapshot reported by a screen.
package playback

import (
	"sync"
	"time"

	"github.com/osa030/ytlounge/internal/domain/snapshot"
)

// Cache holds the latest snapshot and the time it was accepted.
// A nil snapshot means no information is available.
type Cache struct {
	mu        sync.RWMutex
	snap      *snapshot.Snapshot
	updatedAt time.Time
}

// NewCache creates an empty cache stamped with now.
func NewCache(now time.Time) *Cache {
	return &Cache{updatedAt: now}
}

// Replace stores snap as the latest snapshot. Snapshots are never merged.
func (c *Cache) Replace(snap *snapshot.Snapshot, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap.Clone()
	c.updatedAt = now
}

// Get returns a copy of the latest snapshot and the time it was accepted.
func (c *Cache) Get() (*snapshot.Snapshot, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clone(), c.updatedAt
}

// Snapshot returns a copy of the latest snapshot.
func (c *Cache) Snapshot() *snapshot.Snapshot {
	s, _ := c.Get()
	return s
}
