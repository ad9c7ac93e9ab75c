package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/use-agent/glimpse/models"
)

func TestCacheRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("https://example.com/item", false)

	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	resp := &models.ExtractContentResponse{
		ImageURLs:     []string{"https://example.com/a.jpg"},
		Metadata:      map[string]string{"og:title": "Item"},
		ExtractedWith: models.ExtractedWithManual,
	}
	c.Set(key, resp)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got != resp {
		t.Error("hit did not return the stored response unchanged")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	key := Key("https://example.com/item", false)
	c.Set(key, &models.ExtractContentResponse{})

	if _, ok := c.Get(key); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("expected miss after expiry")
	}
}

func TestCacheKeyByMode(t *testing.T) {
	if Key("https://example.com/item", true) == Key("https://example.com/item", false) {
		t.Error("AI and heuristic modes share a cache key")
	}
	if Key("https://example.com/a", false) == Key("https://example.com/b", false) {
		t.Error("distinct URLs share a cache key")
	}
	if Key("https://example.com/item", true) != Key("https://example.com/item", true) {
		t.Error("key is not deterministic")
	}
}

func TestCacheOverwriteAtCapacity(t *testing.T) {
	c := New(3, time.Minute)
	keys := make([]string, 3)
	for i := range keys {
		keys[i] = Key(fmt.Sprintf("https://example.com/%d", i), false)
		c.Set(keys[i], &models.ExtractContentResponse{})
	}

	refreshed := &models.ExtractContentResponse{ExtractedWith: models.ExtractedWithManual}
	c.Set(keys[1], refreshed)

	if n := c.Len(); n != 3 {
		t.Errorf("cache holds %d entries after overwrite, want 3", n)
	}
	for _, k := range keys {
		if _, ok := c.Get(k); !ok {
			t.Errorf("key %s evicted by an overwrite of an existing key", k)
		}
	}
	if got, _ := c.Get(keys[1]); got != refreshed {
		t.Error("overwrite did not replace the stored response")
	}
}

func TestCacheCapacityEviction(t *testing.T) {
	c := New(3, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(Key(fmt.Sprintf("https://example.com/%d", i), false), &models.ExtractContentResponse{})
	}
	if n := c.Len(); n > 3 {
		t.Errorf("cache holds %d entries, capacity 3", n)
	}
}
