// Package retrieve gathers previously indexed content relevant to the
// current conversation turn and renders it for prompt injection.
package retrieve

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/recallhq/recall-go/store"
)

// Embedder is the slice of the embedding service retrieval needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the similarity-search slice of the vector store.
type Searcher interface {
	SearchAllContent(ctx context.Context, queryEmbedding []float32, userID string, matchThreshold float64, matchCount int, opts *store.SearchOptions) ([]store.Row, error)
}

// Config holds retrieval configuration.
type Config struct {
	// Threshold is the minimum similarity for a row to count as relevant.
	Threshold float64

	// MaxPerCorpus caps results per corpus (knowledge, messages, files).
	MaxPerCorpus int

	// ProjectID optionally narrows every query to one project.
	ProjectID string
}

// DefaultConfig returns sensible defaults.
var DefaultConfig = &Config{
	Threshold:    0.7,
	MaxPerCorpus: 5,
}

// RelevantContext is everything retrieval found for the current turn.
// Confidence summarizes how grounded the context is: the best similarity
// seen across all corpora, zero when nothing was retrieved.
type RelevantContext struct {
	Knowledge  []store.Row
	Messages   []store.Row
	Files      []store.Row
	Confidence float64
}

// Empty reports whether nothing relevant was found. A silent, normal
// outcome, not an error.
func (rc *RelevantContext) Empty() bool {
	return len(rc.Knowledge) == 0 && len(rc.Messages) == 0 && len(rc.Files) == 0
}

// Engine performs auto-reference retrieval.
type Engine struct {
	embedder Embedder
	searcher Searcher
	config   *Config
}

// NewEngine creates a retrieval engine. A nil config uses DefaultConfig.
func NewEngine(embedder Embedder, searcher Searcher, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig
	}
	return &Engine{embedder: embedder, searcher: searcher, config: config}
}

// GatherRelevantContext embeds currentText and queries each corpus for the
// nearest matches above the threshold. A corpus that fails to answer
// degrades to empty rather than failing the whole call; only an embedding
// failure makes the context ungatherable.
func (e *Engine) GatherRelevantContext(ctx context.Context, currentText, userID string) (*RelevantContext, error) {
	rc := &RelevantContext{}
	if strings.TrimSpace(currentText) == "" {
		return rc, nil
	}

	queryEmbedding, err := e.embedder.Embed(ctx, currentText)
	if err != nil {
		return rc, fmt.Errorf("embed query: %w", err)
	}

	rc.Knowledge = e.searchCorpus(ctx, queryEmbedding, userID, store.ContentTypeKnowledge)
	rc.Messages = e.searchCorpus(ctx, queryEmbedding, userID, store.ContentTypeMessage)
	rc.Files = e.searchCorpus(ctx, queryEmbedding, userID, store.ContentTypeFile)

	for _, rows := range [][]store.Row{rc.Knowledge, rc.Messages, rc.Files} {
		for _, row := range rows {
			if row.Similarity > rc.Confidence {
				rc.Confidence = row.Similarity
			}
		}
	}

	log.Printf("[RETRIEVE] user=%s knowledge=%d messages=%d files=%d confidence=%.2f",
		userID, len(rc.Knowledge), len(rc.Messages), len(rc.Files), rc.Confidence)
	return rc, nil
}

func (e *Engine) searchCorpus(ctx context.Context, queryEmbedding []float32, userID, contentType string) []store.Row {
	rows, err := e.searcher.SearchAllContent(ctx, queryEmbedding, userID,
		e.config.Threshold, e.config.MaxPerCorpus, &store.SearchOptions{
			ContentType: contentType,
			ProjectID:   e.config.ProjectID,
		})
	if err != nil {
		log.Printf("[RETRIEVE] corpus %s unavailable: %v", contentType, err)
		return nil
	}
	return rows
}

// FormatContextForAI renders the retrieved context as one block of text
// ready for prompt injection. An empty context renders to an empty string.
func FormatContextForAI(rc *RelevantContext) string {
	if rc == nil || rc.Empty() {
		return ""
	}

	var parts []string
	appendSection := func(header string, rows []store.Row) {
		if len(rows) == 0 {
			return
		}
		parts = append(parts, header)
		for i, row := range rows {
			label := row.Title
			if label == "" {
				label = row.ContentType
			}
			parts = append(parts, fmt.Sprintf("%d. [%s] %s", i+1, label, row.Content))
		}
	}

	appendSection("=== RELEVANT KNOWLEDGE ===", rc.Knowledge)
	appendSection("=== RELEVANT PAST MESSAGES ===", rc.Messages)
	appendSection("=== RELEVANT FILES ===", rc.Files)

	return strings.Join(parts, "\n")
}
