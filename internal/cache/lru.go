package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// LRU implements a byte-capacity bounded BlockCache.
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

// NewLRU creates a new LRU cache with the given capacity in bytes.
func NewLRU(capacity int64) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached block.
func (c *LRU) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a block. Blocks larger than the total capacity are not cached.
func (c *LRU) Set(_ context.Context, key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		c.size += int64(len(b)) - int64(len(ent.Value.(*entry).value))
		ent.Value.(*entry).value = b
		c.evict()
		return
	}

	itemSize := int64(len(b))
	if itemSize > c.capacity {
		return
	}

	ent := c.evictList.PushFront(&entry{key: key, value: b})
	c.items[key] = ent
	c.size += itemSize
	c.evict()
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, ent := range c.items {
		if predicate(key) {
			c.removeElement(ent)
		}
	}
}

// Stats returns hit/miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached blocks.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the total cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *LRU) evict() {
	for c.size > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			return
		}
		c.removeElement(ent)
	}
}

func (c *LRU) removeElement(ent *list.Element) {
	c.evictList.Remove(ent)
	e := ent.Value.(*entry)
	delete(c.items, e.key)
	c.size -= int64(len(e.value))
}
