package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(ttl, WithClock(clk.Now)), clk
}

func TestTTL_RetrievableBeforeExpiry_AbsentAfter(t *testing.T) {
	c, clk := newTestCache(time.Minute)

	c.Set("k", "v")

	clk.Advance(59 * time.Second)
	v, ok := c.Get("k")
	if !ok || v.(string) != "v" {
		t.Fatalf("expected value before ttl, got %v %v", v, ok)
	}

	clk.Advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after ttl")
	}
	if c.Stats().TotalItems != 0 {
		t.Fatalf("expired entry should be dropped on read")
	}
}

func TestSetWithTTL_PerEntry(t *testing.T) {
	c, clk := newTestCache(time.Hour)

	c.SetWithTTL("short", 1, time.Second)
	c.Set("long", 2)

	clk.Advance(2 * time.Second)

	if c.Has("short") {
		t.Fatalf("short entry should have expired")
	}
	if !c.Has("long") {
		t.Fatalf("long entry should still be present")
	}
}

func TestDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if !c.Delete("a") {
		t.Fatalf("expected delete to report existing key")
	}
	if c.Delete("a") {
		t.Fatalf("second delete should report missing key")
	}

	c.Clear()
	if c.Has("b") {
		t.Fatalf("clear should remove everything")
	}
}

func TestStatsAndCleanup(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.SetWithTTL("old", 1, time.Second)
	c.Set("fresh", 2)

	clk.Advance(5 * time.Second)

	s := c.Stats()
	if s.TotalItems != 2 || s.ValidItems != 1 || s.ExpiredItems != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}

	if n := c.Cleanup(); n != 1 {
		t.Fatalf("expected 1 cleaned, got %d", n)
	}
	if c.Stats().TotalItems != 1 {
		t.Fatalf("expected 1 remaining item")
	}
}

func TestGetOrLoad(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	calls := 0
	load := func() (any, error) {
		calls++
		return calls, nil
	}

	v1, _ := c.GetOrLoad("k", 0, load)
	v2, _ := c.GetOrLoad("k", 0, load)
	if v1 != 1 || v2 != 1 || calls != 1 {
		t.Fatalf("expected one load, got calls=%d v1=%v v2=%v", calls, v1, v2)
	}

	clk.Advance(2 * time.Minute)
	v3, _ := c.GetOrLoad("k", 0, load)
	if v3 != 2 {
		t.Fatalf("expected reload after expiry, got %v", v3)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("e", 0, func() (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if c.Has("e") {
		t.Fatalf("errors must not be cached")
	}
}
