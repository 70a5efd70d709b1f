package agent

import (
	"container/list"
	"sync"
)

// fifoCache is a bounded insertion-ordered map. Inserting past capacity
// evicts the oldest-inserted entry; hits do not change eviction order.
type fifoCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // of *fifoEntry, front = oldest
	items    map[string]*list.Element
}

type fifoEntry struct {
	key   string
	value string
}

func newFIFOCache(capacity int) *fifoCache {
	return &fifoCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the cached value without touching insertion order.
func (c *fifoCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*fifoEntry).value, true
	}
	return "", false
}

// Put inserts or updates a value. Updating an existing key keeps its
// original position in the eviction order.
func (c *fifoCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*fifoEntry).value = value
		return
	}
	c.items[key] = c.order.PushBack(&fifoEntry{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*fifoEntry).key)
	}
}

// Len returns the number of cached entries.
func (c *fifoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
