// Package search fans a query out to multiple sources (the local vector
// store plus external, token-gated providers), merges and ranks the
// results, and degrades per source on auth or network failure.
package search

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/recallhq/recall-go/core"
)

// TokenProvider supplies access tokens for external sources. It is
// responsible for refreshing expired tokens transparently; an empty token
// with a nil error means none is available, which skips the source.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context, userID string) (string, error)
}

// Source is one search adapter. Search must return an empty list, never an
// error, when it cannot authenticate with the token it was given; other
// failures may error and are absorbed per source by the aggregator.
type Source interface {
	Name() string
	RequiresToken() bool
	Search(ctx context.Context, query, token string) ([]core.SearchResult, error)
}

// Filters are applied globally to every source's results before counting.
type Filters struct {
	MinSimilarity float64
	After         time.Time
	Before        time.Time
}

func (f *Filters) keep(r core.SearchResult) bool {
	if f == nil {
		return true
	}
	if r.Similarity < f.MinSimilarity {
		return false
	}
	if !f.After.IsZero() && r.CreatedAt.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && r.CreatedAt.After(f.Before) {
		return false
	}
	return true
}

// Response is one aggregate query's outcome. len(Results) always equals
// the sum of Breakdown values.
type Response struct {
	Results   []core.SearchResult
	Breakdown map[string]int
}

// Aggregator fans queries out to registered sources.
type Aggregator struct {
	tokens  TokenProvider
	sources map[string]Source
}

// NewAggregator creates an aggregator over the given sources. tokens may
// be nil when no registered source is token-gated.
func NewAggregator(tokens TokenProvider, sources ...Source) *Aggregator {
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	return &Aggregator{tokens: tokens, sources: byName}
}

// Search queries the named sources concurrently and merges their results,
// ranked by similarity. A source that cannot authenticate or answer
// contributes zero results and a zero breakdown entry; the call itself
// still succeeds.
func (a *Aggregator) Search(ctx context.Context, query string, sourceNames []string, userID string, filters *Filters) *Response {
	resp := &Response{Breakdown: make(map[string]int, len(sourceNames))}

	// A duplicate name would query its source twice while only the last
	// count survived in the breakdown; keep the first occurrence only.
	names := make([]string, 0, len(sourceNames))
	for _, name := range sourceNames {
		if _, seen := resp.Breakdown[name]; seen {
			continue
		}
		resp.Breakdown[name] = 0
		names = append(names, name)
	}

	perSource := make([][]core.SearchResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		src, ok := a.sources[name]
		if !ok {
			log.Printf("[SEARCH] unknown source %q skipped", name)
			continue
		}

		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()
			perSource[i] = a.searchOne(ctx, src, query, userID, filters)
		}()
	}
	wg.Wait()

	for i, name := range names {
		resp.Breakdown[name] = len(perSource[i])
		resp.Results = append(resp.Results, perSource[i]...)
	}

	sort.SliceStable(resp.Results, func(i, j int) bool {
		return resp.Results[i].Similarity > resp.Results[j].Similarity
	})

	log.Printf("[SEARCH] query returned %d results across %d sources", len(resp.Results), len(names))
	return resp
}

func (a *Aggregator) searchOne(ctx context.Context, src Source, query, userID string, filters *Filters) []core.SearchResult {
	token := ""
	if src.RequiresToken() {
		if a.tokens == nil {
			log.Printf("[SEARCH] source %s skipped: no token provider", src.Name())
			return nil
		}
		var err error
		token, err = a.tokens.GetValidAccessToken(ctx, userID)
		if err != nil {
			log.Printf("[SEARCH] source %s skipped: %v", src.Name(),
				&core.AuthError{Source: src.Name(), Err: err})
			return nil
		}
		if token == "" {
			log.Printf("[SEARCH] source %s skipped: no token available", src.Name())
			return nil
		}
	}

	results, err := src.Search(ctx, query, token)
	if err != nil {
		log.Printf("[SEARCH] source %s failed: %v", src.Name(), err)
		return nil
	}

	// Copy rather than filter in place; the slice belongs to the adapter.
	kept := make([]core.SearchResult, 0, len(results))
	for _, r := range results {
		if filters.keep(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
