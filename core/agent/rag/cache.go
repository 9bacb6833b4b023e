package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// EmbeddingCache caches embeddings in memory to reduce API calls.
// Embeddings for identical text never change, so entries live long.
type EmbeddingCache struct {
	entries map[string]*cachedEmbedding
	mu      sync.RWMutex
	maxSize int
	ttl     time.Duration
}

type cachedEmbedding struct {
	embedding []float32
	createdAt time.Time
}

type EmbeddingCacheConfig struct {
	MaxSize int
	TTL     time.Duration
}

func DefaultEmbeddingCacheConfig() EmbeddingCacheConfig {
	return EmbeddingCacheConfig{
		MaxSize: 10000,
		TTL:     24 * time.Hour,
	}
}

func NewEmbeddingCache(cfg EmbeddingCacheConfig) *EmbeddingCache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultEmbeddingCacheConfig().MaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultEmbeddingCacheConfig().TTL
	}
	return &EmbeddingCache{
		entries: make(map[string]*cachedEmbedding),
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	key := cacheKey(text)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(entry.createdAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.embedding, true
}

func (c *EmbeddingCache) Set(text string, embedding []float32) {
	key := cacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = &cachedEmbedding{
		embedding: embedding,
		createdAt: time.Now(),
	}
}

// evictOldestLocked removes the oldest entry; caller holds the lock.
func (c *EmbeddingCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
