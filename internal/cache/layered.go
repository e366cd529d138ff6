package cache

import (
	"fmt"
	"sync"
	"time"
)

type pendingEntry struct {
	value []byte
	ttl   time.Duration
}

// Layered is a memory cache in front of a disk cache.
//
// Writes land in memory and are queued for disk; Flush persists the queue.
// Callers flush at their checkpoints and before exit, so the disk layer
// never runs ahead of the database it caches work for.
type Layered struct {
	memory *MemoryCache
	disk   *DiskCache

	mu      sync.Mutex
	pending map[string]pendingEntry
	hits    int
	misses  int
}

// NewLayered creates a new layered cache
func NewLayered(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *Layered {
	return &Layered{
		memory:  NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:    NewDiskCache(diskDir, diskTTL),
		pending: make(map[string]pendingEntry),
	}
}

// Get checks memory first, then disk, promoting disk hits into memory.
func (c *Layered) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if val, found := c.memory.Get(key); found {
		c.hits++
		return val, true
	}
	if p, ok := c.pending[key]; ok {
		c.hits++
		return p.value, true
	}
	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		c.hits++
		return val, true
	}
	c.misses++
	return nil, false
}

// Set stores a value in memory and queues it for the next Flush.
func (c *Layered) Set(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	c.pending[key] = pendingEntry{value: value, ttl: ttl}
	return nil
}

// Flush writes queued entries to disk. Entries that fail stay queued.
func (c *Layered) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	failed := 0
	for key, p := range c.pending {
		if err := c.disk.Set(key, p.value, p.ttl); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(c.pending, key)
	}
	if firstErr != nil {
		return fmt.Errorf("flush cache: %d entries failed: %w", failed, firstErr)
	}
	return nil
}

// Delete removes a value from both layers
func (c *Layered) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, key)
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear removes all values from both layers
func (c *Layered) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = make(map[string]pendingEntry)
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Prune removes expired disk entries
func (c *Layered) Prune() (int, error) {
	return c.disk.Prune()
}

// Stats returns hit and miss counters
func (c *Layered) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Pending: len(c.pending)}
}

// Close flushes pending entries
func (c *Layered) Close() error {
	return c.Flush()
}
