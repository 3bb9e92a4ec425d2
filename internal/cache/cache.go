package cache

import (
	"sync"

	"github.com/littleexplorer/atlas/pkg/core"
)

// MemoryCache indexes the journal by memory ID so lookups do not walk the list.
// Selection and rendering hit it every frame.
type MemoryCache struct {
	m        sync.Mutex
	Memories map[string]core.Memory
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		m:        sync.Mutex{},
		Memories: make(map[string]core.Memory),
	}
}

func (c *MemoryCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Memories = make(map[string]core.Memory)
}

// Load replaces the cache contents with memories
func (c *MemoryCache) Load(memories []core.Memory) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Memories = make(map[string]core.Memory, len(memories))
	for _, mem := range memories {
		c.Memories[mem.ID] = mem
	}
}

func (c *MemoryCache) Lock() {
	c.m.Lock()
}

func (c *MemoryCache) Unlock() {
	c.m.Unlock()
}

func (c *MemoryCache) Get(id string) (core.Memory, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if mem, ok := c.Memories[id]; ok {
		return mem, true
	}
	return core.Memory{}, false
}

func (c *MemoryCache) Add(mem core.Memory) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Memories[mem.ID] = mem
}

func (c *MemoryCache) Delete(id string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.Memories, id)
}

func (c *MemoryCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Memories)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

func (c *SafeCounter) Dec() {
	c.mu.Lock()
	c.v--
	c.mu.Unlock()
}

func (c *SafeCounter) Add(n int) {
	c.mu.Lock()
	c.v += n
	c.mu.Unlock()
}
