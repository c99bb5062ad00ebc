package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

// LookupStatus is the outcome of a cache lookup. Callers treat
// StatusError identically to StatusMiss (fall through to the provider);
// the two are logged distinctly.
type LookupStatus int

const (
	StatusMiss LookupStatus = iota
	StatusHit
	StatusError
)

// cacheEntry is the stored value: vector plus a per-entry hit counter.
type cacheEntry struct {
	vector []float32
	hits   int64
}

// Cache is a content-addressed embedding cache. Keys are SHA-256 hashes of
// case/whitespace-normalized text, so identical text always hits. The cache
// is bounded; cold entries are evicted under memory pressure.
type Cache struct {
	inner *ristretto.Cache
}

// NewCache creates a bounded cache holding up to size entries.
func NewCache(size int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// NormalizeText lowercases text and collapses runs of whitespace so that
// trivially different renderings of the same content share a cache key.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Key returns the cache key for text: the hex SHA-256 of its normalized form.
func Key(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// Get looks up the vector for text. The returned vector is shared; callers
// must not mutate it.
func (c *Cache) Get(text string) ([]float32, LookupStatus) {
	value, found := c.inner.Get(Key(text))
	if !found {
		return nil, StatusMiss
	}
	entry, ok := value.(*cacheEntry)
	if !ok {
		// Corrupted entry; treat as a miss but log it apart.
		log.Printf("[EMBED] cache entry has unexpected type %T", value)
		return nil, StatusError
	}
	atomic.AddInt64(&entry.hits, 1)
	return entry.vector, StatusHit
}

// Set stores the vector for text and waits for the write to become visible,
// so a lookup immediately after Set observes it.
func (c *Cache) Set(text string, vector []float32) {
	c.inner.Set(Key(text), &cacheEntry{vector: vector}, 1)
	c.inner.Wait()
}

// HitCount returns how many times the entry for text has been read.
func (c *Cache) HitCount(text string) int64 {
	value, found := c.inner.Get(Key(text))
	if !found {
		return 0
	}
	entry, ok := value.(*cacheEntry)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(&entry.hits)
}

// Stats reports cumulative hit/miss counts across all lookups.
func (c *Cache) Stats() (hits, misses uint64) {
	m := c.inner.Metrics
	return m.Hits(), m.Misses()
}

// Close releases the cache's internal goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}
