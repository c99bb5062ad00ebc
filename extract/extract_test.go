package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall-go/core"
)

func TestMemoryDetector_FactsAndActionItems(t *testing.T) {
	d := NewMemoryDetector()
	items, err := d.Detect(context.Background(),
		"I live in Seattle and work at Microsoft. Deadline March 15")
	require.NoError(t, err)
	require.NotEmpty(t, items)

	var types []core.ChunkType
	for _, item := range items {
		assert.Equal(t, KindMemory, item.Kind)
		assert.NotEmpty(t, item.Content)
		assert.GreaterOrEqual(t, item.Importance, 0.0)
		assert.LessOrEqual(t, item.Importance, 1.0)
		types = append(types, item.ChunkType)
	}
	assert.Contains(t, types, core.ChunkFact)
	assert.Contains(t, types, core.ChunkActionItem)
}

func TestMemoryDetector_Decisions(t *testing.T) {
	d := NewMemoryDetector()
	items, err := d.Detect(context.Background(), "We decided to use Postgres for the new service.")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, core.ChunkDecision, items[0].ChunkType)
}

func TestMemoryDetector_Preferences(t *testing.T) {
	d := NewMemoryDetector()
	items, err := d.Detect(context.Background(), "I prefer dark roast coffee")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, core.ChunkPreference, items[0].ChunkType)
}

func TestMemoryDetector_NothingDurable(t *testing.T) {
	d := NewMemoryDetector()
	items, err := d.Detect(context.Background(), "ok thanks")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestKnowledgeDetector_CodeFence(t *testing.T) {
	d := NewKnowledgeDetector()
	items, err := d.Detect(context.Background(),
		"Here is the fix:\n```go\nfunc main() { fmt.Println(\"hi\") }\n```")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "technical", items[0].Category)
	assert.Contains(t, items[0].Content, "func main()")
}

func TestKnowledgeDetector_ProblemReport(t *testing.T) {
	d := NewKnowledgeDetector()
	items, err := d.Detect(context.Background(), "The deploy is failing with a timeout on startup")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "problem", items[0].Category)
	assert.NotEmpty(t, items[0].Title)
}

func TestKnowledgeDetector_ProjectMention(t *testing.T) {
	d := NewKnowledgeDetector()
	items, err := d.Detect(context.Background(), "Kickoff for project Atlas is next week")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "project", items[0].Category)
	assert.Contains(t, items[0].Tags, "atlas")
}

type failingDetector struct{}

func (failingDetector) Name() string { return "failing" }
func (failingDetector) Detect(ctx context.Context, text string) ([]Item, error) {
	return nil, errors.New("boom")
}

type panickyDetector struct{}

func (panickyDetector) Name() string { return "panicky" }
func (panickyDetector) Detect(ctx context.Context, text string) ([]Item, error) {
	panic("unexpected")
}

func TestRunAll_FailureDoesNotSuppressOthers(t *testing.T) {
	items, errs := RunAll(context.Background(),
		"I live in Berlin. We decided to ship Friday.",
		failingDetector{}, NewMemoryDetector(), panickyDetector{}, NewKnowledgeDetector())

	assert.Len(t, errs, 2)
	assert.NotEmpty(t, items)

	// Both surviving detectors contributed.
	kinds := map[Kind]bool{}
	for _, item := range items {
		kinds[item.Kind] = true
	}
	assert.True(t, kinds[KindMemory])
	assert.True(t, kinds[KindKnowledge])
}

func TestParseLLMItems(t *testing.T) {
	raw := "```json\n[{\"content\":\"Lives in Oslo\",\"type\":\"fact\",\"importance\":0.9},{\"content\":\"\",\"type\":\"fact\",\"importance\":0.5},{\"content\":\"Ship it\",\"type\":\"bogus\",\"importance\":1.7}]\n```"
	items, err := parseLLMItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, core.ChunkFact, items[0].ChunkType)
	assert.Equal(t, 0.9, items[0].Importance)
	// Unknown type falls back to fact, importance is clamped.
	assert.Equal(t, core.ChunkFact, items[1].ChunkType)
	assert.Equal(t, 1.0, items[1].Importance)
}

func TestParseLLMItems_Garbage(t *testing.T) {
	_, err := parseLLMItems("I could not comply")
	assert.Error(t, err)
}
