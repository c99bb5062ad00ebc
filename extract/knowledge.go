package extract

import (
	"context"
	"regexp"
	"strings"
)

var (
	codeFenceRe = regexp.MustCompile("(?s)```.+?```")
	codeLikeRe  = regexp.MustCompile(`(?m)\b(?:func|def|class|interface|struct)\s+\w+|=>\s*\{|\w+\([^)]*\)\s*\{`)
	decisionRe  = regexp.MustCompile(`(?i)\b(?:we|i) (?:decided|agreed|chose|settled on|will use)\b|\bdecision:\s`)
	preferRe    = regexp.MustCompile(`(?i)\b(?:i|we) prefer\b|\bour convention is\b`)
	projectRe   = regexp.MustCompile(`(?i)\bproject\s+([A-Z][\w-]*)`)
	problemRe   = regexp.MustCompile(`(?i)\b(?:error|failing|failed|broken|bug|crash|exception|timeout)\b`)
)

// KnowledgeDetector turns raw text into titled, categorized knowledge
// entries: decisions, preferences, project mentions, technical content and
// problem reports.
type KnowledgeDetector struct{}

// NewKnowledgeDetector creates the heuristic knowledge detector.
func NewKnowledgeDetector() *KnowledgeDetector {
	return &KnowledgeDetector{}
}

func (d *KnowledgeDetector) Name() string { return "knowledge" }

func (d *KnowledgeDetector) Detect(ctx context.Context, text string) ([]Item, error) {
	var items []Item

	// Fenced code blocks become technical entries whole, so the snippet
	// stays embeddable as one unit.
	for _, block := range codeFenceRe.FindAllString(text, -1) {
		items = append(items, Item{
			Kind:     KindKnowledge,
			Content:  block,
			Title:    "Code snippet",
			Category: "technical",
			Tags:     []string{"code"},
		})
	}
	stripped := codeFenceRe.ReplaceAllString(text, "")

	for _, sentence := range sentences(stripped) {
		switch {
		case decisionRe.MatchString(sentence):
			items = append(items, knowledgeItem(sentence, "decision", "decision"))
		case preferRe.MatchString(sentence):
			items = append(items, knowledgeItem(sentence, "preference", "preference"))
		case problemRe.MatchString(sentence):
			items = append(items, knowledgeItem(sentence, "problem", "problem"))
		case codeLikeRe.MatchString(sentence):
			items = append(items, knowledgeItem(sentence, "technical", "code"))
		case projectRe.MatchString(sentence):
			item := knowledgeItem(sentence, "project", "project")
			if m := projectRe.FindStringSubmatch(sentence); len(m) > 1 {
				item.Tags = append(item.Tags, strings.ToLower(m[1]))
			}
			items = append(items, item)
		}
	}

	return items, nil
}

func knowledgeItem(sentence, category, tag string) Item {
	return Item{
		Kind:     KindKnowledge,
		Content:  sentence,
		Title:    titleFor(sentence),
		Category: category,
		Tags:     []string{tag},
	}
}
