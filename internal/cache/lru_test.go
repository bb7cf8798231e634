package cache

import (
	"testing"
	"time"

	"riepilogo/internal/log"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Errorf("expected b evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected a=1, got %d (%v)", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clk.now)

	c.Set("a", "x")
	c.Set("b", "y")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "z")

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Errorf("expected a expired")
	}
	if v, ok := c.Get("b"); !ok || v != "z" {
		t.Errorf("expected b=z, got %q (%v)", v, ok)
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("expected 1 expired entry, got %d", n)
	}
}

func TestPurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	for i, k := range []string{"a", "b", "c"} {
		c.Set(k, i)
	}
	c.Delete("a")
	if c.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
	c.Set("d", 4)
	if v, ok := c.Get("d"); !ok || v != 4 {
		t.Errorf("cache unusable after purge")
	}
}

func TestManagerCleanNow(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second).WithClock(clk.now)
	c.Set("a", 1)

	m := NewManager(log.Discard())
	m.Register(c)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	clk.t = clk.t.Add(2 * time.Second)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("expected 1 entry cleaned, got %d", n)
	}
	m.Stop()
}

func TestOnEvict(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewLRUCache[int](2, time.Minute).WithClock(clk.now).
		OnEvict(func(key string, _ int) { evicted = append(evicted, key) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("b", 3)
	c.Set("c", 4)
	c.Delete("b")
	clk.t = clk.t.Add(2 * time.Minute)
	if _, ok := c.Get("c"); ok {
		t.Errorf("expected c expired")
	}
	c.Set("d", 5)
	c.Set("e", 6)
	c.Purge()

	want := []string{"a", "b", "c", "e", "d"}
	if len(evicted) != len(want) {
		t.Fatalf("expected evictions %v, got %v", want, evicted)
	}
	for i := range want {
		if evicted[i] != want[i] {
			t.Fatalf("expected evictions %v, got %v", want, evicted)
		}
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](0, 0).WithClock(clk.now)
	c.Set("a", 1)

	clk.t = clk.t.Add(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Errorf("expected a present without TTL")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("expected nothing cleaned, got %d", n)
	}
}
