package search

import (
	"context"
	"fmt"

	"github.com/recallhq/recall-go/core"
	"github.com/recallhq/recall-go/store"
)

// Embedder is the slice of the embedding service the local source needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the similarity-search slice of the vector store.
type Searcher interface {
	SearchAllContent(ctx context.Context, queryEmbedding []float32, userID string, matchThreshold float64, matchCount int, opts *store.SearchOptions) ([]store.Row, error)
}

// LocalSource searches the locally indexed vector store. It needs no
// token.
type LocalSource struct {
	embedder Embedder
	searcher Searcher
	userID   string
	limit    int
}

// NewLocalSource creates the local adapter for one user's content.
func NewLocalSource(embedder Embedder, searcher Searcher, userID string, limit int) *LocalSource {
	if limit <= 0 {
		limit = 10
	}
	return &LocalSource{embedder: embedder, searcher: searcher, userID: userID, limit: limit}
}

func (s *LocalSource) Name() string        { return "local" }
func (s *LocalSource) RequiresToken() bool { return false }

// Search embeds the query and asks the vector store for nearest matches
// across all content types. Threshold filtering is left to the
// aggregator's global filters.
func (s *LocalSource) Search(ctx context.Context, query, _ string) ([]core.SearchResult, error) {
	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.searcher.SearchAllContent(ctx, queryEmbedding, s.userID, 0, s.limit, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]core.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, core.SearchResult{
			ID:          row.ID,
			Source:      s.Name(),
			ContentType: row.ContentType,
			Title:       row.Title,
			Content:     row.Content,
			Similarity:  row.Similarity,
			CreatedAt:   row.CreatedAt,
			Metadata:    row.Metadata,
		})
	}
	return results, nil
}

var _ Source = (*LocalSource)(nil)
