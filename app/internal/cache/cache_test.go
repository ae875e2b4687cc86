package cache

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	c := New[string](1 * time.Second)
	defer c.Stop()

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.defaultTTL != 1*time.Second {
		t.Errorf("expected defaultTTL=1s, got %v", c.defaultTTL)
	}
}

func TestSet_Get(t *testing.T) {
	c := New[[]int](1 * time.Minute)
	defer c.Stop()

	c.Set("monitors", []int{1, 2})

	val, ok := c.Get("monitors")
	if !ok {
		t.Fatal("expected monitors to exist")
	}
	if len(val) != 2 || val[1] != 2 {
		t.Errorf("unexpected value %v", val)
	}
}

func TestGet_Missing(t *testing.T) {
	c := New[string](1 * time.Minute)
	defer c.Stop()

	val, ok := c.Get("nonexistent")
	if ok {
		t.Error("expected false for missing key")
	}
	if val != "" {
		t.Errorf("expected zero value, got %q", val)
	}
}

func TestGet_Expired(t *testing.T) {
	c := New[string](1 * time.Minute)
	defer c.Stop()

	c.mu.Lock()
	c.items["expired"] = Entry[string]{
		Value:     "old",
		ExpiresAt: time.Now().Add(-1 * time.Second),
	}
	c.mu.Unlock()

	if _, ok := c.Get("expired"); ok {
		t.Error("expected false for expired key")
	}
}

func TestSetWithTTL(t *testing.T) {
	c := New[string](1 * time.Hour)
	defer c.Stop()

	c.SetWithTTL("short", "data", 50*time.Millisecond)

	val, ok := c.Get("short")
	if !ok || val != "data" {
		t.Fatal("expected key to exist immediately after set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok = c.Get("short"); ok {
		t.Error("expected key to be expired after TTL")
	}
}

func TestDelete(t *testing.T) {
	c := New[int](1 * time.Minute)
	defer c.Stop()

	c.Set("detail:1", 1)
	c.Set("detail:2", 2)

	c.Delete("detail:1")
	if _, ok := c.Get("detail:1"); ok {
		t.Error("expected detail:1 to be deleted")
	}
	if v, ok := c.Get("detail:2"); !ok || v != 2 {
		t.Error("expected detail:2 to survive")
	}
	c.Delete("missing") // should not panic
}

func TestCleanupRemovesExpired(t *testing.T) {
	c := New[string](20 * time.Millisecond)
	defer c.Stop()

	c.Set("a", "x")
	time.Sleep(100 * time.Millisecond)

	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	if n != 0 {
		t.Errorf("expected cleanup to drop expired entry, got %d", n)
	}
}

func TestStop_Twice(t *testing.T) {
	c := New[string](time.Minute)
	c.Stop()
	c.Stop()
}
