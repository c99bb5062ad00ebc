// Package chromem backs the vector store contract with chromem-go, a pure
// Go embedded vector database. Each user gets their own collection for
// namespace isolation.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/recallhq/recall-go/core"
	"github.com/recallhq/recall-go/store"
)

// Store wraps a chromem DB.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an empty in-process store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (s *Store) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	name := fmt.Sprintf("user_%s", userID)
	if userID == "" {
		name = "global"
	}

	col, err := s.db.CreateCollection(
		name,
		nil, // no collection metadata
		nil, // we provide embeddings ourselves
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[userID] = col
	return col, nil
}

// SearchAllContent queries the user's collection by vector similarity and
// filters by threshold and the optional project/content-type narrowing.
func (s *Store) SearchAllContent(ctx context.Context, queryEmbedding []float32, userID string, matchThreshold float64, matchCount int, opts *store.SearchOptions) ([]store.Row, error) {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	where := map[string]string{}
	if opts != nil && opts.ContentType != "" {
		where["content_type"] = opts.ContentType
	}
	if opts != nil && opts.ProjectID != "" {
		where["project_id"] = opts.ProjectID
	}

	// chromem requires nResults <= collection size; clamp and then back
	// off further if the where filter shrinks the candidate set.
	limit := matchCount
	if count := col.Count(); limit > count {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	var results []chromem.Result
	for ; limit >= 1; limit-- {
		results, err = col.QueryEmbedding(ctx, queryEmbedding, limit, where, nil)
		if err == nil {
			break
		}
		if !isInsufficientDocsError(err) {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
		if limit == 1 {
			return nil, nil
		}
	}

	var rows []store.Row
	for _, result := range results {
		if float64(result.Similarity) < matchThreshold {
			continue
		}
		rows = append(rows, resultToRow(result))
	}

	log.Printf("[CHROMEM] user=%s returned %d/%d rows above threshold %.2f",
		userID, len(rows), len(results), matchThreshold)
	return rows, nil
}

// UpsertMessageRef persists a message back-reference.
func (s *Store) UpsertMessageRef(ctx context.Context, ref core.MessageReference) error {
	metadata := map[string]string{
		"content_type":    store.ContentTypeMessage,
		"conversation_id": ref.ConversationID,
		"created_at":      ref.CreatedAt.Format(time.RFC3339),
	}
	setProjectID(metadata, ref.ProjectID)
	return s.addDocument(ctx, ref.UserID, chromem.Document{
		ID:        ref.MessageID,
		Content:   ref.Content,
		Embedding: ref.Embedding,
		Metadata:  metadata,
	})
}

// UpsertMemoryChunk persists an extracted memory chunk.
func (s *Store) UpsertMemoryChunk(ctx context.Context, userID string, chunk core.MemoryChunk) error {
	metadata := map[string]string{
		"content_type": store.ContentTypeMemory,
		"chunk_type":   string(chunk.Type),
		"importance":   fmt.Sprintf("%.2f", chunk.Importance),
		"source_id":    chunk.SourceMessageID,
		"created_at":   chunk.CreatedAt.Format(time.RFC3339),
	}
	setProjectID(metadata, chunk.ProjectID)
	return s.addDocument(ctx, userID, chromem.Document{
		ID:        chunk.ID,
		Content:   chunk.Content,
		Embedding: chunk.Embedding,
		Metadata:  metadata,
	})
}

// UpsertKnowledgeEntry persists an extracted knowledge entry.
func (s *Store) UpsertKnowledgeEntry(ctx context.Context, userID string, entry core.KnowledgeEntry) error {
	metadata := map[string]string{
		"content_type": store.ContentTypeKnowledge,
		"title":        entry.Title,
		"category":     entry.Category,
		"tags":         strings.Join(entry.Tags, ","),
		"source_id":    entry.SourceID,
		"created_at":   entry.CreatedAt.Format(time.RFC3339),
	}
	setProjectID(metadata, entry.ProjectID)
	return s.addDocument(ctx, userID, chromem.Document{
		ID:        entry.ID,
		Content:   entry.Content,
		Embedding: entry.Embedding,
		Metadata:  metadata,
	})
}

// setProjectID records the project only when set; a chromem where filter
// matches on exact key equality, so unscoped documents stay keyless.
func setProjectID(metadata map[string]string, projectID string) {
	if projectID != "" {
		metadata["project_id"] = projectID
	}
}

func (s *Store) addDocument(ctx context.Context, userID string, doc chromem.Document) error {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return err
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Close is a no-op; chromem keeps everything in memory.
func (s *Store) Close() error {
	return nil
}

func resultToRow(result chromem.Result) store.Row {
	createdAt, _ := time.Parse(time.RFC3339, result.Metadata["created_at"])

	metadata := make(map[string]string)
	for k, v := range result.Metadata {
		switch k {
		case "content_type", "title", "created_at", "project_id", "source_id":
		default:
			metadata[k] = v
		}
	}

	return store.Row{
		ID:          result.ID,
		ContentType: result.Metadata["content_type"],
		Title:       result.Metadata["title"],
		Content:     result.Content,
		Similarity:  float64(result.Similarity),
		ProjectID:   result.Metadata["project_id"],
		CreatedAt:   createdAt,
		Metadata:    metadata,
		SourceID:    result.Metadata["source_id"],
	}
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

var _ store.VectorStore = (*Store)(nil)
