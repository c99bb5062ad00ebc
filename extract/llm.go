package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/recallhq/recall-go/core"
)

const llmSystemPrompt = `You extract long-term memories from a single chat message.
Return a JSON array, nothing else. Each element:
{"content": "<standalone sentence>", "type": "fact|decision|preference|action_item", "importance": <0.0-1.0>}
Only include durable information worth remembering across conversations.
Return [] when the message contains nothing durable.`

// LLMMemoryDetector uses Claude to classify memory chunks. It satisfies the
// same Detector contract as the heuristic detectors, so callers can swap or
// combine them freely.
type LLMMemoryDetector struct {
	client *anthropic.Client
	model  string
}

// NewLLMMemoryDetector creates a detector backed by the given client.
// An empty model falls back to a sensible default.
func NewLLMMemoryDetector(client *anthropic.Client, model string) *LLMMemoryDetector {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &LLMMemoryDetector{client: client, model: model}
}

func (d *LLMMemoryDetector) Name() string { return "memory-llm" }

func (d *LLMMemoryDetector) Detect(ctx context.Context, text string) ([]Item, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: llmSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var raw string
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}

	return parseLLMItems(raw)
}

type llmItem struct {
	Content    string  `json:"content"`
	Type       string  `json:"type"`
	Importance float64 `json:"importance"`
}

func parseLLMItems(raw string) ([]Item, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed []llmItem
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("unparseable model output: %w", err)
	}

	var items []Item
	for _, p := range parsed {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		chunkType := core.ChunkType(p.Type)
		switch chunkType {
		case core.ChunkFact, core.ChunkDecision, core.ChunkPreference, core.ChunkActionItem:
		default:
			chunkType = core.ChunkFact
		}
		importance := p.Importance
		if importance < 0 {
			importance = 0
		}
		if importance > 1 {
			importance = 1
		}
		items = append(items, Item{
			Kind:       KindMemory,
			Content:    p.Content,
			ChunkType:  chunkType,
			Importance: importance,
		})
	}
	return items, nil
}
