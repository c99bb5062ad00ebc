// Package embed wraps an external embedding provider with a
// content-addressed cache, batching, input truncation and retry.
//
// Architecture:
//   - Provider: text-to-vector conversion (Voyage-style HTTP API in
//     production, deterministic mock for tests)
//   - Cache: hash-keyed cache of previously computed vectors, bounded
//   - Service: the caller-facing wrapper combining the two
//
// The provider is the only blocking/suspension point; cache lookups and
// similarity math are synchronous, in-memory computation.
package embed

import "context"

// Provider converts texts to fixed-dimension embedding vectors.
// The dimension is a deployment constant, not negotiated per call.
type Provider interface {
	// Embed converts a batch of texts to embedding vectors, one per input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Config holds embedding service configuration.
type Config struct {
	// MaxBatchSize caps how many texts go to the provider in one call.
	MaxBatchSize int

	// MaxInputChars truncates oversized inputs before they reach the
	// provider. The cache key is computed from the full text.
	MaxInputChars int

	// CacheSize bounds the embedding cache (number of entries).
	CacheSize int64
}

// DefaultConfig returns sensible defaults.
var DefaultConfig = &Config{
	MaxBatchSize:  128,
	MaxInputChars: 8000,
	CacheSize:     10_000,
}
