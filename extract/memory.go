package extract

import (
	"context"
	"regexp"

	"github.com/recallhq/recall-go/core"
)

// memoryRule maps a sentence pattern to a chunk type and base importance.
type memoryRule struct {
	pattern    *regexp.Regexp
	chunkType  core.ChunkType
	importance float64
}

var memoryRules = []memoryRule{
	// First-person location or employer statements.
	{regexp.MustCompile(`(?i)\bi (?:live|reside) in\b`), core.ChunkFact, 0.8},
	{regexp.MustCompile(`(?i)\bi(?:'m| am) (?:from|based in)\b`), core.ChunkFact, 0.8},
	{regexp.MustCompile(`(?i)\b(?:i )?work(?:s|ing)? (?:at|for)\b`), core.ChunkFact, 0.8},
	{regexp.MustCompile(`(?i)\bmy (?:name|birthday|employer|company|team) is\b`), core.ChunkFact, 0.75},

	// Explicit decisions.
	{regexp.MustCompile(`(?i)\b(?:we|i) (?:decided|agreed|chose|settled on)\b`), core.ChunkDecision, 0.9},
	{regexp.MustCompile(`(?i)\b(?:we|i) (?:will|are going to) use\b`), core.ChunkDecision, 0.85},

	// Stated preferences.
	{regexp.MustCompile(`(?i)\bi (?:prefer|like|love|dislike|hate|always|never)\b`), core.ChunkPreference, 0.6},

	// Commitments and obligations.
	{regexp.MustCompile(`(?i)\b(?:deadline|due (?:by|on|date))\b`), core.ChunkActionItem, 0.85},
	{regexp.MustCompile(`(?i)\b(?:i |we )?(?:need to|have to|must|should) \w+`), core.ChunkActionItem, 0.7},
	{regexp.MustCompile(`(?i)\btodo\b|\baction item\b`), core.ChunkActionItem, 0.75},
}

var digitRe = regexp.MustCompile(`\d`)

// MemoryDetector produces short, importance-scored memory chunks from a
// single message using pattern rules.
type MemoryDetector struct{}

// NewMemoryDetector creates the heuristic memory detector.
func NewMemoryDetector() *MemoryDetector {
	return &MemoryDetector{}
}

func (d *MemoryDetector) Name() string { return "memory" }

// Detect scans each sentence against the rule set. A sentence yields at
// most one chunk, keyed by the first rule that matches, so overlapping
// rules don't duplicate content.
func (d *MemoryDetector) Detect(ctx context.Context, text string) ([]Item, error) {
	var items []Item

	for _, sentence := range sentences(text) {
		for _, rule := range memoryRules {
			if !rule.pattern.MatchString(sentence) {
				continue
			}
			items = append(items, Item{
				Kind:       KindMemory,
				Content:    sentence,
				ChunkType:  rule.chunkType,
				Importance: scoreImportance(sentence, rule.importance),
			})
			break
		}
	}

	return items, nil
}

// scoreImportance adjusts a rule's base importance for sentence qualities:
// longer sentences carry more recoverable context, dates and numbers make
// commitments concrete.
func scoreImportance(sentence string, base float64) float64 {
	score := base
	if len(sentence) > 80 {
		score += 0.05
	}
	if digitRe.MatchString(sentence) {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
