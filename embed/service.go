package embed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/recallhq/recall-go/core"
)

// Service is the caller-facing embedding wrapper. It consults the cache
// before the provider, truncates oversized inputs, batches misses, and
// offers a retry form with per-item failure visibility.
type Service struct {
	provider Provider
	cache    *Cache
	config   *Config
}

// NewService creates a Service around provider. A nil config uses
// DefaultConfig.
func NewService(provider Provider, config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig
	}
	cache, err := NewCache(config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Service{
		provider: provider,
		cache:    cache,
		config:   config,
	}, nil
}

// Cache exposes the underlying cache for stats and tests.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Dimensions returns the provider's embedding dimension.
func (s *Service) Dimensions() int {
	return s.provider.Dimensions()
}

// Embed converts one text to a vector. Blank input is a caller error.
// Identical normalized text hits the cache and never reaches the provider.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrEmptyInput
	}

	if vec, status := s.cache.Get(text); status == StatusHit {
		return vec, nil
	}

	vectors, err := s.provider.Embed(ctx, []string{s.truncate(text)})
	if err != nil {
		return nil, &core.ProviderError{Provider: "embedding", Err: err}
	}
	if len(vectors) != 1 {
		return nil, &core.ProviderError{
			Provider: "embedding",
			Err:      fmt.Errorf("expected 1 vector, got %d", len(vectors)),
		}
	}

	s.cache.Set(text, vectors[0])
	return vectors[0], nil
}

// EmbedBatch converts texts to vectors, preserving input order. Cache hits
// short-circuit; only misses are sent to the provider, chunked to the batch
// limit, so a batch call never costs more than one provider call per miss.
// Any blank text fails the whole call with ErrEmptyInput.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, core.ErrEmptyInput
		}
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	for i, text := range texts {
		if vec, status := s.cache.Get(text); status == StatusHit {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		return results, nil
	}

	for lo := 0; lo < len(missIdx); lo += s.config.MaxBatchSize {
		hi := lo + s.config.MaxBatchSize
		if hi > len(missIdx) {
			hi = len(missIdx)
		}
		batch := missIdx[lo:hi]

		inputs := make([]string, len(batch))
		for j, i := range batch {
			inputs[j] = s.truncate(texts[i])
		}

		vectors, err := s.provider.Embed(ctx, inputs)
		if err != nil {
			return nil, &core.ProviderError{Provider: "embedding", Err: err}
		}
		if len(vectors) != len(inputs) {
			return nil, &core.ProviderError{
				Provider: "embedding",
				Err:      fmt.Errorf("expected %d vectors, got %d", len(inputs), len(vectors)),
			}
		}

		for j, i := range batch {
			s.cache.Set(texts[i], vectors[j])
			results[i] = vectors[j]
		}
	}

	return results, nil
}

// EmbedWithRetry embeds texts with up to maxAttempts provider attempts and
// linear backoff (baseDelay * attempt number). Texts that still fail after
// the last attempt come back as nil rather than failing the batch, so a
// batch of N texts always yields N slots. Blank texts are nil slots too.
func (s *Service) EmbedWithRetry(ctx context.Context, texts []string, maxAttempts int, baseDelay time.Duration) [][]float32 {
	results := make([][]float32, len(texts))

	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			log.Printf("[EMBED] skipping blank text at index %d", i)
			continue
		}
		if vec, status := s.cache.Get(text); status == StatusHit {
			results[i] = vec
			continue
		}
		pending = append(pending, i)
	}

	for attempt := 1; attempt <= maxAttempts && len(pending) > 0; attempt++ {
		inputs := make([]string, len(pending))
		for j, i := range pending {
			inputs[j] = s.truncate(texts[i])
		}

		vectors, err := s.provider.Embed(ctx, inputs)
		if err == nil && len(vectors) == len(inputs) {
			for j, i := range pending {
				s.cache.Set(texts[i], vectors[j])
				results[i] = vectors[j]
			}
			return results
		}
		if err == nil {
			err = fmt.Errorf("expected %d vectors, got %d", len(inputs), len(vectors))
		}
		log.Printf("[EMBED] attempt %d/%d failed for %d texts: %v", attempt, maxAttempts, len(pending), err)

		if attempt < maxAttempts {
			select {
			case <-time.After(baseDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return results
			}
		}
	}

	return results
}

func (s *Service) truncate(text string) string {
	if len(text) <= s.config.MaxInputChars {
		return text
	}
	// Back off to a rune boundary so a multi-byte character is never cut
	// in half.
	cut := s.config.MaxInputChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
