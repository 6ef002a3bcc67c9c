package rate

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	expires time.Time
}

// MemoryCounter keeps counters in process memory.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]window),
		now:     time.Now,
	}
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.live(key)
	if !ok {
		return 0, nil
	}
	return w.count, nil
}

func (c *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.live(key)
	if !ok {
		w = window{}
		if ttl > 0 {
			w.expires = c.now().Add(ttl)
		}
	}
	w.count++
	c.windows[key] = w
	return w.count, nil
}

func (c *MemoryCounter) Del(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.windows, key)
	c.mu.Unlock()
	return nil
}

// live returns the window for key, dropping it when expired. c.mu must be held.
func (c *MemoryCounter) live(key string) (window, bool) {
	w, ok := c.windows[key]
	if !ok {
		return window{}, false
	}
	if !w.expires.IsZero() && !c.now().Before(w.expires) {
		delete(c.windows, key)
		return window{}, false
	}
	return w, true
}
