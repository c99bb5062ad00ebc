// Package index orchestrates the per-message pipeline: embed the message,
// persist a back-reference, run the extractors, embed and persist what they
// found, and report what actually happened.
//
// Concurrent triggers for the same message id coalesce into one pipeline
// run through a shared in-flight registry; a settled id may be re-indexed.
package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/recallhq/recall-go/core"
	"github.com/recallhq/recall-go/extract"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("index: coordinator is closed")

// Embedder is the slice of the embedding service the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedWithRetry(ctx context.Context, texts []string, maxAttempts int, baseDelay time.Duration) [][]float32
}

// Store is the persistence collaborator: append-only writes for the three
// entity kinds the pipeline produces.
type Store interface {
	UpsertMessageRef(ctx context.Context, ref core.MessageReference) error
	UpsertMemoryChunk(ctx context.Context, userID string, chunk core.MemoryChunk) error
	UpsertKnowledgeEntry(ctx context.Context, userID string, entry core.KnowledgeEntry) error
}

// Config holds coordinator configuration.
type Config struct {
	// Concurrency bounds parallel pipeline runs in BatchIndex and the
	// background pool. Callers beyond the bound queue, they don't fail.
	Concurrency int

	// MaxAttempts and BaseDelay drive embedding retry inside the pipeline.
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultConfig holds the defaults used when no config is given.
var DefaultConfig = &Config{
	Concurrency: 5,
	MaxAttempts: 3,
	BaseDelay:   200 * time.Millisecond,
}

// Coordinator runs the indexing pipeline. The in-flight registry is owned
// by the Coordinator instance, not a package global, so lifetime and
// sharing are explicit.
type Coordinator struct {
	embedder  Embedder
	store     Store
	detectors []extract.Detector
	config    *Config

	flight singleflight.Group

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
	bgSem    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewCoordinator creates a Coordinator. A nil config uses DefaultConfig;
// empty detectors default to the two heuristic extractors.
func NewCoordinator(embedder Embedder, st Store, detectors []extract.Detector, config *Config) *Coordinator {
	if config == nil {
		config = DefaultConfig
	}
	if len(detectors) == 0 {
		detectors = []extract.Detector{
			extract.NewMemoryDetector(),
			extract.NewKnowledgeDetector(),
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		embedder:  embedder,
		store:     st,
		detectors: detectors,
		config:    config,
		bgCtx:     ctx,
		bgCancel:  cancel,
		bgSem:     make(chan struct{}, config.Concurrency),
	}
}

// IndexMessage runs the pipeline for one message. If a run for the same
// message id is already in flight, the caller receives that run's result
// instead of starting a duplicate; once settled, the registry entry is gone
// and a fresh call starts a new run.
func (c *Coordinator) IndexMessage(ctx context.Context, msg core.Message) *core.IndexingResult {
	v, _, shared := c.flight.Do(msg.ID, func() (interface{}, error) {
		return c.runPipeline(ctx, msg), nil
	})
	if shared {
		log.Printf("[INDEX] coalesced duplicate trigger for message %s", msg.ID)
	}
	return v.(*core.IndexingResult)
}

// BatchIndex runs the pipeline for each message with bounded concurrency,
// returning one result per message in input order.
func (c *Coordinator) BatchIndex(ctx context.Context, msgs []core.Message) []*core.IndexingResult {
	results := make([]*core.IndexingResult, len(msgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			results[i] = c.IndexMessage(gctx, msg)
			return nil
		})
	}
	g.Wait()

	return results
}

// Submit schedules msg for background indexing, off the caller's critical
// path. Work beyond the concurrency bound queues. Use Wait in tests to
// await completion; Close abandons queued work on shutdown.
func (c *Coordinator) Submit(msg core.Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.bgWG.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.bgWG.Done()
		select {
		case c.bgSem <- struct{}{}:
			defer func() { <-c.bgSem }()
		case <-c.bgCtx.Done():
			return
		}
		result := c.IndexMessage(c.bgCtx, msg)
		if !result.OK() {
			log.Printf("[INDEX] background run for %s finished with %d errors", msg.ID, len(result.Errors))
		}
	}()
	return nil
}

// Wait blocks until all submitted background work has finished.
func (c *Coordinator) Wait() {
	c.bgWG.Wait()
}

// Close stops accepting submissions, cancels in-progress background runs
// and waits for them to wind down. Partially completed work is abandoned;
// re-running the same message later is safe.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.bgCancel()
	c.bgWG.Wait()
}

func (c *Coordinator) runPipeline(ctx context.Context, msg core.Message) *core.IndexingResult {
	start := time.Now()
	result := &core.IndexingResult{MessageID: msg.ID}

	// Step 1+2: embed the message and persist the back-reference.
	msgEmbedding, err := c.embedder.Embed(ctx, msg.Content)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("embed message: %w", err))
	} else {
		ref := core.MessageReference{
			MessageID:      msg.ID,
			ConversationID: msg.ConversationID,
			UserID:         msg.UserID,
			Content:        msg.Content,
			ProjectID:      msg.ProjectID,
			Embedding:      msgEmbedding,
			CreatedAt:      msg.CreatedAt,
		}
		if err := c.store.UpsertMessageRef(ctx, ref); err != nil {
			result.Errors = append(result.Errors, &core.PersistenceError{Entity: "message_reference", Err: err})
		} else {
			result.ReferencesCreated++
		}
	}

	// Step 3: run the detectors concurrently. Each failure degrades its
	// own output only.
	items, errs := c.detect(ctx, msg.Content)
	result.Errors = append(result.Errors, errs...)

	// Step 4: embed and persist what was found.
	c.persistItems(ctx, msg, items, result)

	result.ProcessingTime = time.Since(start)
	log.Printf("[INDEX] message %s: refs=%d chunks=%d knowledge=%d errors=%d in %s",
		msg.ID, result.ReferencesCreated, result.MemoryChunksExtracted,
		result.KnowledgeItemsCreated, len(result.Errors), result.ProcessingTime)
	return result
}

func (c *Coordinator) detect(ctx context.Context, text string) ([]extract.Item, []error) {
	type outcome struct {
		items []extract.Item
		errs  []error
	}
	outcomes := make([]outcome, len(c.detectors))

	var wg sync.WaitGroup
	for i, d := range c.detectors {
		i, d := i, d
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, errs := extract.RunAll(ctx, text, d)
			outcomes[i] = outcome{items: items, errs: errs}
		}()
	}
	wg.Wait()

	var items []extract.Item
	var errs []error
	for _, o := range outcomes {
		items = append(items, o.items...)
		errs = append(errs, o.errs...)
	}
	return items, errs
}

func (c *Coordinator) persistItems(ctx context.Context, msg core.Message, items []extract.Item, result *core.IndexingResult) {
	if len(items) == 0 {
		return
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}
	vectors := c.embedder.EmbedWithRetry(ctx, texts, c.config.MaxAttempts, c.config.BaseDelay)

	for i, item := range items {
		if vectors[i] == nil {
			result.Errors = append(result.Errors, fmt.Errorf("embed item %d: no vector after %d attempts", i, c.config.MaxAttempts))
			continue
		}

		switch item.Kind {
		case extract.KindMemory:
			chunk := core.MemoryChunk{
				ID:              uuid.New().String(),
				Content:         item.Content,
				Type:            item.ChunkType,
				Importance:      item.Importance,
				SourceMessageID: msg.ID,
				ProjectID:       msg.ProjectID,
				Embedding:       vectors[i],
				CreatedAt:       time.Now(),
			}
			if err := c.store.UpsertMemoryChunk(ctx, msg.UserID, chunk); err != nil {
				result.Errors = append(result.Errors, &core.PersistenceError{Entity: "memory_chunk", Err: err})
				continue
			}
			result.MemoryChunksExtracted++

		case extract.KindKnowledge:
			entry := core.KnowledgeEntry{
				ID:        uuid.New().String(),
				Title:     item.Title,
				Content:   item.Content,
				Category:  item.Category,
				Tags:      item.Tags,
				Embedding: vectors[i],
				SourceID:  msg.ID,
				ProjectID: msg.ProjectID,
				CreatedAt: time.Now(),
			}
			if err := c.store.UpsertKnowledgeEntry(ctx, msg.UserID, entry); err != nil {
				result.Errors = append(result.Errors, &core.PersistenceError{Entity: "knowledge_entry", Err: err})
				continue
			}
			result.KnowledgeItemsCreated++
		}
	}
}
