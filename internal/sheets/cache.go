package sheets

import (
	"sync"
	"time"
)

// headerCache holds the sheet's header row so appends don't have to re-read
// it every time.
type headerCache struct {
	mu        sync.RWMutex
	header    []string
	fetchedAt time.Time
	ttl       time.Duration
}

func newHeaderCache(ttl time.Duration) *headerCache {
	return &headerCache{ttl: ttl}
}

func (c *headerCache) Get() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.header == nil || time.Since(c.fetchedAt) > c.ttl {
		return nil
	}

	result := make([]string, len(c.header))
	copy(result, c.header)
	return result
}

func (c *headerCache) Set(header []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.header = make([]string, len(header))
	copy(c.header, header)
	c.fetchedAt = time.Now()
}

func (c *headerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.header = nil
}
