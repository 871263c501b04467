package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache stores embedding vectors for sentence corpora
type Cache interface {
	Get(key string) ([][]float64, bool)
	Set(key string, vectors [][]float64, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// EmbeddingKey generates a cache key for a corpus of texts, keyed by corpus
// size and content checksum so a changed document never reuses stale vectors.
func EmbeddingKey(texts []string) string {
	h := sha256.New()
	total := 0
	for _, t := range texts {
		total += len(t)
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("clausecheck:v1:emb:n%d:l%d:%s", len(texts), total, sum[:32])
}
