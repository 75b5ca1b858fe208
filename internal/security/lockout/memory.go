package lockout

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	n       int64
	expires time.Time
}

// MemoryCounter es un Counter in-process. Sirve para un único nodo.
type MemoryCounter struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{m: map[string]entry{}, now: time.Now}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	e, ok := c.m[key]
	if !ok || !now.Before(e.expires) {
		e = entry{expires: now.Add(window)}
	}
	e.n++
	c.m[key] = e
	return e.n, nil
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return 0, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.m, key)
		return 0, nil
	}
	return e.n, nil
}

func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}
