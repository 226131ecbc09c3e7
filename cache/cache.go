// ABOUTME: In-memory cache with TTL-based expiration
// ABOUTME: Thread-safe cache using sync.Map with periodic sweeping of expired entries

package cache

import (
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	data      any
	expiresAt time.Time
}

type Cache struct {
	store sync.Map
	ttl   time.Duration
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

// New creates a cache whose entries live for ttl and starts the sweeper.
// Call Close to stop the sweeper.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		ttl:  ttl,
		now:  time.Now,
		done: make(chan struct{}),
	}
	go c.startCleanup(time.Minute)
	return c
}

// SetClock replaces the time source. Intended for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// TTL returns the default entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) Get(key string) (any, bool) {
	val, ok := c.store.Load(key)
	if !ok {
		slog.Debug("Cache miss", "key", key)
		return nil, false
	}

	e := val.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.store.CompareAndDelete(key, val)
		slog.Debug("Cache expired", "key", key)
		return nil, false
	}

	slog.Debug("Cache hit", "key", key)
	return e.data, true
}

func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	e := &entry{
		data:      value,
		expiresAt: c.now().Add(ttl),
	}
	c.store.Store(key, e)
	slog.Debug("Cache set", "key", key, "ttl", ttl)
}

// Clear removes a single key.
func (c *Cache) Clear(key string) {
	c.store.Delete(key)
}

// Len counts live (unexpired) entries.
func (c *Cache) Len() int {
	now := c.now()
	n := 0
	c.store.Range(func(_, val any) bool {
		if now.Before(val.(*entry).expiresAt) {
			n++
		}
		return true
	})
	return n
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep drops every expired entry.
func (c *Cache) sweep() {
	now := c.now()
	c.store.Range(func(key, val any) bool {
		if !now.Before(val.(*entry).expiresAt) {
			c.store.CompareAndDelete(key, val)
		}
		return true
	})
}
