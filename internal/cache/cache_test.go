package cache

import (
	"testing"
	"time"
)

func TestEmbeddingKey_Deterministic(t *testing.T) {
	texts := []string{"first sentence", "second sentence"}

	k1 := EmbeddingKey(texts)
	k2 := EmbeddingKey(texts)
	if k1 != k2 {
		t.Errorf("Expected identical keys for identical corpus, got %q and %q", k1, k2)
	}

	k3 := EmbeddingKey([]string{"first sentence", "changed sentence"})
	if k1 == k3 {
		t.Error("Expected different key for changed corpus")
	}
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	key := EmbeddingKey([]string{"a", "b"})
	vectors := [][]float64{{0.1, 0.2}, {0.3, 0.4}}

	if err := c.Set(key, vectors, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Expected cached vectors")
	}
	if len(got) != 2 || got[1][1] != 0.4 {
		t.Errorf("Unexpected vectors: %v", got)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := EmbeddingKey([]string{"a"})

	if err := c.Set(key, [][]float64{{1}}, -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayeredCache_DiskPromotion(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	vectors := [][]float64{{0.5, 0.6}}

	if err := layered.Set("k", vectors, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Fresh layered cache over the same dir: memory is cold, disk warm
	layered2 := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := layered2.Get("k")
	if !ok || len(got) != 1 || got[0][1] != 0.6 {
		t.Errorf("Expected disk hit, got %v ok=%v", got, ok)
	}
}
