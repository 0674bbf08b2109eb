package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAnswerCache_GetSet(t *testing.T) {
	c := New(5*time.Second, 100)

	key := MakeKey([]byte("png-bytes"), "Is there a submit button?")
	c.Set(key, "yes")

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "yes" {
		t.Errorf("expected answer yes, got %q", got)
	}
}

func TestAnswerCache_Miss(t *testing.T) {
	c := New(5*time.Second, 100)

	if _, ok := c.Get("nonexistent"); ok {
		t.Error("expected cache miss for nonexistent key")
	}
}

func TestAnswerCache_TTLExpiration(t *testing.T) {
	c := New(time.Minute, 100)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	key := MakeKey([]byte("frame"), "q")
	c.Set(key, "a")

	if _, ok := c.Get(key); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	if _, ok := c.Get(key); ok {
		t.Error("expected cache miss after TTL expiration")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry removed, %d left", c.Len())
	}
}

func TestAnswerCache_MaxEntries(t *testing.T) {
	c := New(5*time.Second, 3)

	c.Set("key1", "a")
	c.Set("key2", "b")
	c.Set("key3", "c")

	for _, k := range []string{"key1", "key2", "key3"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to be in cache", k)
		}
	}

	// Adding a 4th should evict the oldest (key1)
	c.Set("key4", "d")

	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to be evicted (oldest entry)")
	}
	if _, ok := c.Get("key4"); !ok {
		t.Error("expected key4 to be in cache")
	}
}

func TestAnswerCache_OverwriteExistingKey(t *testing.T) {
	c := New(5*time.Second, 2)

	c.Set("key", "v1")
	c.Set("key", "v2")
	c.Set("other", "x")

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "v2" {
		t.Errorf("expected updated answer v2, got %q", got)
	}
	if c.Len() != 2 {
		t.Errorf("overwrite must not consume capacity, len=%d", c.Len())
	}
}

func TestMakeKey(t *testing.T) {
	a := MakeKey([]byte("frame-1"), "Is the spinner visible?")
	b := MakeKey([]byte("frame-1"), "Is the spinner visible?")
	if a != b {
		t.Errorf("identical inputs produced different keys: %q vs %q", a, b)
	}

	tests := []struct {
		name  string
		image []byte
		q     string
	}{
		{"different image", []byte("frame-2"), "Is the spinner visible?"},
		{"different question", []byte("frame-1"), "Is the button blue?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if MakeKey(tt.image, tt.q) == a {
				t.Error("expected a distinct key")
			}
		})
	}
}

func TestAnswerCache_ThreadSafety(t *testing.T) {
	maxEntries := 50
	c := New(5*time.Second, maxEntries)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Set(fmt.Sprintf("key-%d", n), "answer")
		}(i)
		go func(n int) {
			defer wg.Done()
			c.Get(fmt.Sprintf("key-%d", n))
		}(i)
	}
	wg.Wait()

	if n := c.Len(); n > maxEntries {
		t.Errorf("cache exceeded maxEntries: got %d, max %d", n, maxEntries)
	}
}
