// Package mock provides a deterministic embedding provider for testing.
package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync/atomic"
)

// Provider generates deterministic embeddings based on text hash.
// It also counts calls and can be told to fail its first N attempts,
// which makes retry behavior testable.
type Provider struct {
	dimensions int
	calls      int64
	failFirst  int64
}

// New creates a mock provider with the given dimensions.
func New(dimensions int) *Provider {
	if dimensions == 0 {
		dimensions = 384 // match all-MiniLM-L6-v2
	}
	return &Provider{dimensions: dimensions}
}

// FailFirst makes the next n Embed calls return an error.
func (p *Provider) FailFirst(n int) {
	atomic.StoreInt64(&p.failFirst, int64(n))
}

// Calls returns how many times Embed has been invoked.
func (p *Provider) Calls() int {
	return int(atomic.LoadInt64(&p.calls))
}

// Embed creates one deterministic unit vector per text.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	call := atomic.AddInt64(&p.calls, 1)
	if call <= atomic.LoadInt64(&p.failFirst) {
		return nil, errors.New("mock provider: simulated failure")
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.embedOne(text)
	}
	return vectors, nil
}

// Dimensions returns the embedding size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

func (p *Provider) embedOne(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, p.dimensions)
	for i := 0; i < p.dimensions; i++ {
		// Simple LCG seeded by the text hash.
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding)
}

// normalize converts embedding to unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
