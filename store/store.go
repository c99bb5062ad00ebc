// Package store defines the vector storage contract the indexing and
// retrieval layers depend on. Backends: chromem (embedded, pure Go) and
// pgvector (PostgreSQL).
//
// Writes are append-only with at-least-once semantics; similarity search
// is delegated entirely to the backend.
package store

import (
	"context"
	"time"

	"github.com/recallhq/recall-go/core"
)

// Content types used across backends.
const (
	ContentTypeKnowledge = "knowledge"
	ContentTypeMessage   = "message"
	ContentTypeMemory    = "memory"
	ContentTypeFile      = "file"
)

// Row is one similarity-search hit as returned by a backend.
type Row struct {
	ID          string
	ContentType string
	Title       string
	Content     string
	Similarity  float64
	ProjectID   string
	CreatedAt   time.Time
	Metadata    map[string]string
	SourceID    string
}

// SearchOptions narrows a SearchAllContent call.
type SearchOptions struct {
	// ProjectID restricts results to one project when non-empty.
	ProjectID string

	// ContentType restricts results to one content type when non-empty.
	ContentType string
}

// VectorStore is the external similarity-search system.
type VectorStore interface {
	// SearchAllContent returns the rows most similar to queryEmbedding for
	// userID, above matchThreshold, capped at matchCount, best first.
	SearchAllContent(ctx context.Context, queryEmbedding []float32, userID string, matchThreshold float64, matchCount int, opts *SearchOptions) ([]Row, error)

	// UpsertMessageRef persists a message back-reference record.
	UpsertMessageRef(ctx context.Context, ref core.MessageReference) error

	// UpsertMemoryChunk persists an extracted memory chunk.
	UpsertMemoryChunk(ctx context.Context, userID string, chunk core.MemoryChunk) error

	// UpsertKnowledgeEntry persists an extracted knowledge entry.
	UpsertKnowledgeEntry(ctx context.Context, userID string, entry core.KnowledgeEntry) error

	// Close releases backend resources.
	Close() error
}
