// Package pgvector backs the vector store contract with PostgreSQL and the
// pgvector extension. All content lives in one table keyed by content type,
// which keeps SearchAllContent a single indexed query.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/recallhq/recall-go/core"
	"github.com/recallhq/recall-go/store"
)

// Schema is the DDL this backend expects. Dimension 1536 matches the
// default deployment constant; adjust both together.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS content_items (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    content_type TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL,
    project_id   TEXT NOT NULL DEFAULT '',
    source_id    TEXT NOT NULL DEFAULT '',
    metadata     JSONB NOT NULL DEFAULT '{}',
    embedding    vector(1536),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS content_items_user_type_idx
    ON content_items (user_id, content_type);
`

// Store is a PostgreSQL-backed vector store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// SearchAllContent finds the most similar rows for userID using cosine
// distance, above matchThreshold, best first.
func (s *Store) SearchAllContent(ctx context.Context, queryEmbedding []float32, userID string, matchThreshold float64, matchCount int, opts *store.SearchOptions) ([]store.Row, error) {
	projectID, contentType := "", ""
	if opts != nil {
		projectID = opts.ProjectID
		contentType = opts.ContentType
	}

	query := `
		SELECT id, content_type, title, content,
		       1 - (embedding <=> $1) AS similarity,
		       project_id, created_at, metadata, source_id
		FROM content_items
		WHERE user_id = $2
		  AND embedding IS NOT NULL
		  AND ($3 = '' OR project_id = $3)
		  AND ($4 = '' OR content_type = $4)
		  AND 1 - (embedding <=> $1) >= $5
		ORDER BY embedding <=> $1
		LIMIT $6
	`

	rows, err := s.pool.Query(ctx, query,
		pgv.NewVector(queryEmbedding), userID, projectID, contentType, matchThreshold, matchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to search content: %w", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var row store.Row
		var rawMeta []byte
		err := rows.Scan(&row.ID, &row.ContentType, &row.Title, &row.Content,
			&row.Similarity, &row.ProjectID, &row.CreatedAt, &rawMeta, &row.SourceID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &row.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// UpsertMessageRef persists a message back-reference. Re-inserting the same
// message id is a no-op, which makes pipeline re-runs safe.
func (s *Store) UpsertMessageRef(ctx context.Context, ref core.MessageReference) error {
	return s.insert(ctx, insertArgs{
		id:          ref.MessageID,
		userID:      ref.UserID,
		contentType: store.ContentTypeMessage,
		content:     ref.Content,
		projectID:   ref.ProjectID,
		metadata:    map[string]string{"conversation_id": ref.ConversationID},
		embedding:   ref.Embedding,
		createdAt:   ref.CreatedAt,
	})
}

// UpsertMemoryChunk persists an extracted memory chunk.
func (s *Store) UpsertMemoryChunk(ctx context.Context, userID string, chunk core.MemoryChunk) error {
	return s.insert(ctx, insertArgs{
		id:          chunk.ID,
		userID:      userID,
		contentType: store.ContentTypeMemory,
		content:     chunk.Content,
		sourceID:    chunk.SourceMessageID,
		projectID:   chunk.ProjectID,
		metadata: map[string]string{
			"chunk_type": string(chunk.Type),
			"importance": fmt.Sprintf("%.2f", chunk.Importance),
		},
		embedding: chunk.Embedding,
		createdAt: chunk.CreatedAt,
	})
}

// UpsertKnowledgeEntry persists an extracted knowledge entry.
func (s *Store) UpsertKnowledgeEntry(ctx context.Context, userID string, entry core.KnowledgeEntry) error {
	return s.insert(ctx, insertArgs{
		id:          entry.ID,
		userID:      userID,
		contentType: store.ContentTypeKnowledge,
		title:       entry.Title,
		content:     entry.Content,
		sourceID:    entry.SourceID,
		projectID:   entry.ProjectID,
		metadata: map[string]string{
			"category": entry.Category,
			"tags":     strings.Join(entry.Tags, ","),
		},
		embedding: entry.Embedding,
		createdAt: entry.CreatedAt,
	})
}

type insertArgs struct {
	id          string
	userID      string
	contentType string
	title       string
	content     string
	sourceID    string
	projectID   string
	metadata    map[string]string
	embedding   []float32
	createdAt   time.Time
}

func (s *Store) insert(ctx context.Context, args insertArgs) error {
	meta, err := json.Marshal(args.metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if args.createdAt.IsZero() {
		args.createdAt = time.Now()
	}

	query := `
		INSERT INTO content_items
			(id, user_id, content_type, title, content, source_id, project_id, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.pool.Exec(ctx, query,
		args.id, args.userID, args.contentType, args.title, args.content,
		args.sourceID, args.projectID, meta, pgv.NewVector(args.embedding), args.createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", args.contentType, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var _ store.VectorStore = (*Store)(nil)
