package cache

import (
	"sync"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(1 * time.Second)
	defer c.Close()

	c.Set("key1", "value1")

	val, found := c.Get("key1")
	if !found {
		t.Error("Expected to find key1")
	}
	if val != "value1" {
		t.Errorf("Expected value1, got %v", val)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New(5 * time.Minute)
	defer c.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("key1", "value1")

	// Should exist immediately
	if _, found := c.Get("key1"); !found {
		t.Error("Expected to find key1 immediately")
	}

	now = now.Add(4*time.Minute + 59*time.Second)
	if _, found := c.Get("key1"); !found {
		t.Error("Expected key1 to be fresh just before TTL")
	}

	now = now.Add(time.Second)
	if _, found := c.Get("key1"); found {
		t.Error("Expected key1 to be expired at TTL")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New(1 * time.Second)
	defer c.Close()

	c.Set("key1", "value1")
	c.Clear("key1")

	_, found := c.Get("key1")
	if found {
		t.Error("Expected key1 to be cleared")
	}
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Hour)

	now = now.Add(2 * time.Minute)
	c.sweep()

	if c.Len() != 1 {
		t.Errorf("Expected 1 live entry after sweep, got %d", c.Len())
	}
	if _, found := c.Get("b"); !found {
		t.Error("Expected long-lived entry to survive sweep")
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	c.Close()
	c.Close()
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i)
			c.Get("k")
		}(i)
	}
	wg.Wait()

	if _, found := c.Get("k"); !found {
		t.Error("Expected k after concurrent writes")
	}
}
