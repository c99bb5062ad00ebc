package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversational message. Messages are immutable once
// created; they are the input to the indexing pipeline, never its output.
type Message struct {
	ID             string
	ConversationID string
	UserID         string
	Role           Role
	Content        string
	ProjectID      string // optional
	CreatedAt      time.Time
}

// NewMessage creates a Message with a fresh ID and timestamp.
func NewMessage(conversationID, userID string, role Role, content string) Message {
	return Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// ChunkType classifies a memory chunk.
type ChunkType string

const (
	ChunkFact       ChunkType = "fact"
	ChunkDecision   ChunkType = "decision"
	ChunkPreference ChunkType = "preference"
	ChunkActionItem ChunkType = "action_item"
)

// MemoryChunk is a short, importance-scored piece of extracted memory.
// Chunks are owned by the conversation they were derived from and are never
// mutated after creation. A chunk is not considered indexed until its
// embedding is set.
type MemoryChunk struct {
	ID              string
	Content         string
	Type            ChunkType
	Importance      float64 // [0.0, 1.0]
	SourceMessageID string
	ProjectID       string // inherited from the source message
	Embedding       []float32
	CreatedAt       time.Time
}

// KnowledgeEntry is a distilled, independently retrievable piece of
// knowledge (a decision, preference, project mention, technical snippet or
// problem report). Entries may be retrieved and re-ranked but never mutated
// by retrieval.
type KnowledgeEntry struct {
	ID        string
	Title     string
	Content   string
	Category  string
	Tags      []string
	Embedding []float32
	SourceID  string
	ProjectID string // inherited from the source message
	CreatedAt time.Time
}

// MessageReference is the back-reference record persisted for an indexed
// message: its id plus the embedding of its content. It does not own the
// message itself.
type MessageReference struct {
	MessageID      string
	ConversationID string
	UserID         string
	Content        string
	ProjectID      string
	Embedding      []float32
	CreatedAt      time.Time
}

// IndexingResult summarizes one pipeline run for one message. It is
// returned to the caller and logged, never persisted as its own record.
// Counts reflect exactly the entities persisted in that run.
type IndexingResult struct {
	MessageID             string
	MemoryChunksExtracted int
	KnowledgeItemsCreated int
	ReferencesCreated     int
	ProcessingTime        time.Duration
	Errors                []error
}

// OK reports whether the run completed without any step-level errors.
func (r *IndexingResult) OK() bool {
	return len(r.Errors) == 0
}

// SearchResult is one ranked hit from retrieval or unified search.
// Assembled fresh per query; never persisted.
type SearchResult struct {
	ID          string
	Source      string // source tag, e.g. "local", "mail", "drive"
	ContentType string // "knowledge", "message", "file", or provider-defined
	Title       string
	Content     string
	Similarity  float64 // [0.0, 1.0] or provider-defined scale
	CreatedAt   time.Time
	URL         string
	Metadata    map[string]string
}
