package cache

import (
	"sync"
	"time"
)

// Cache is an advisory in-process TTL cache. A miss or expiry just means the
// caller re-fetches.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry

	hits   uint64
	misses uint64
}

type entry struct {
	val any
	exp time.Time
}

type Option func(*Cache)

// WithClock swaps the time source; tests use it to step past a TTL.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &Cache{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) DefaultTTL() time.Duration { return c.ttl }

func (c *Cache) Get(key string) (any, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		c.countMiss()
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// only drop it if nobody re-set the key meanwhile
		if cur, still := c.m[key]; still && cur.exp.Equal(e.exp) {
			delete(c.m, key)
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()

	return e.val, true
}

func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *Cache) Set(key string, val any) {
	c.SetWithTTL(key, val, c.ttl)
}

// SetWithTTL stores val for ttl; a non-positive ttl falls back to the default.
func (c *Cache) SetWithTTL(key string, val any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	c.m[key] = entry{val: val, exp: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	_, ok := c.m[key]
	delete(c.m, key)
	c.mu.Unlock()
	return ok
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached.
func (c *Cache) GetOrLoad(key string, ttl time.Duration, load func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	c.SetWithTTL(key, v, ttl)
	return v, nil
}

type Stats struct {
	TotalItems   int    `json:"totalItems"`
	ValidItems   int    `json:"validItems"`
	ExpiredItems int    `json:"expiredItems"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
}

func (c *Cache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{TotalItems: len(c.m), Hits: c.hits, Misses: c.misses}
	for _, e := range c.m {
		if now.After(e.exp) {
			s.ExpiredItems++
		} else {
			s.ValidItems++
		}
	}
	return s
}

// Cleanup drops expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

func (c *Cache) countMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}
