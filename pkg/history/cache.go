// Package history implements the RTPS history cache: a store of cache
// changes keyed by sequence number, shared by the writer and reader
// sides of an endpoint (spec.md §4.B).
package history

import (
	"sync"

	"rtps-go/pkg/rtps"
)

// Cache is a set of CacheChanges with at most one entry per sequence
// number. Safe for concurrent use, generalizing the teacher's
// Session.RecoveryQueue/PendingACK sequence-number-keyed maps (each guarded
// by its own mutex) into a single typed store.
type Cache struct {
	mu      sync.RWMutex
	changes map[rtps.SequenceNumber]rtps.CacheChange
}

func New() *Cache {
	return &Cache{changes: make(map[rtps.SequenceNumber]rtps.CacheChange)}
}

// Add inserts change if its sequence number is not already present; a
// duplicate add is a no-op, per spec.md §4.B.
func (c *Cache) Add(change rtps.CacheChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.changes[change.SequenceNumber]; exists {
		return
	}
	c.changes[change.SequenceNumber] = change
}

// Remove deletes the change at seq, if any.
func (c *Cache) Remove(seq rtps.SequenceNumber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.changes, seq)
}

// Get returns the change at seq and whether it was present.
func (c *Cache) Get(seq rtps.SequenceNumber) (rtps.CacheChange, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.changes[seq]
	return ch, ok
}

// MinSeq returns the smallest sequence number present, if any.
func (c *Cache) MinSeq() (rtps.SequenceNumber, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return minMax(c.changes, false)
}

// MaxSeq returns the largest sequence number present, if any.
func (c *Cache) MaxSeq() (rtps.SequenceNumber, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return minMax(c.changes, true)
}

func minMax(m map[rtps.SequenceNumber]rtps.CacheChange, wantMax bool) (rtps.SequenceNumber, bool) {
	first := true
	var best rtps.SequenceNumber
	for sn := range m {
		if first {
			best = sn
			first = false
			continue
		}
		if wantMax && sn > best {
			best = sn
		}
		if !wantMax && sn < best {
			best = sn
		}
	}
	return best, !first
}

// Len reports the number of stored changes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.changes)
}

// Iter calls fn for every stored change. Iteration order is unspecified,
// per spec.md §4.B. fn must not call back into the cache.
func (c *Cache) Iter(fn func(rtps.CacheChange)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.changes {
		fn(ch)
	}
}
