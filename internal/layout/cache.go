package layout

import (
	"sync"

	"github.com/roach88/sollayout/internal/ir"
)

// Cache memoizes struct layouts by name. The first caller for a name
// computes the layout; concurrent callers for the same name wait for it.
// Errors are cached like layouts.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	done   chan struct{}
	layout *ir.StructLayout
	err    error
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

func (c *Cache) do(key string, compute func() (*ir.StructLayout, error)) (*ir.StructLayout, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		<-e.done
		return e.layout, e.err
	}
	e := &cacheEntry{done: make(chan struct{})}
	c.entries[key] = e
	c.misses++
	c.mu.Unlock()

	defer close(e.done)
	e.layout, e.err = compute()
	return e.layout, e.err
}

// Len returns the number of memoized structs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the number of lookups served from the cache and the number
// that computed a layout.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
