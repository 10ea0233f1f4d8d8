// Package cache provides a byte-bounded LRU cache for immutable blob
// blocks. Remote stores pay a round trip per ranged read; caching the
// fixed-size blocks around the descriptor and manifest makes repeated
// loads of the same namespace cheap.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Key identifies one block of one blob.
type Key struct {
	Name  string
	Block uint64
}

// BlockCache is a byte-oriented cache for immutable blocks. Returned
// slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block, or ok=false.
	Get(key Key) ([]byte, bool)
	// Set caches a block. The cache retains b; callers must not mutate it.
	Set(key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}

// LRU is a BlockCache bounded by total cached bytes. Safe for concurrent
// use.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

// NewLRU creates an LRU block cache with the given capacity in bytes.
func NewLRU(capacity int64) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached block.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a block. Blocks larger than the whole capacity are not cached.
func (c *LRU) Set(key Key, b []byte) {
	itemSize := int64(len(b))
	if itemSize > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		e := el.Value.(*entry)
		c.size += itemSize - int64(len(e.value))
		e.value = b
	} else {
		c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
		c.size += itemSize
	}

	for c.size > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.removeElement(el)
	}
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, el := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, el)
		}
	}
	for _, el := range toRemove {
		c.removeElement(el)
	}
}

// Stats returns hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *LRU) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	e := el.Value.(*entry)
	delete(c.items, e.key)
	c.size -= int64(len(e.value))
}
