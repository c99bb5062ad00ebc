package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall-go/core"
	"github.com/recallhq/recall-go/store"
)

type staticTokens struct {
	tokens map[string]string
	err    error
}

func (s *staticTokens) GetValidAccessToken(ctx context.Context, userID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.tokens[userID], nil
}

type stubSource struct {
	name    string
	gated   bool
	results []core.SearchResult
	err     error
}

func (s *stubSource) Name() string        { return s.name }
func (s *stubSource) RequiresToken() bool { return s.gated }
func (s *stubSource) Search(ctx context.Context, query, token string) ([]core.SearchResult, error) {
	return s.results, s.err
}

func TestSearch_MergesAndRanks(t *testing.T) {
	local := &stubSource{name: "local", results: []core.SearchResult{
		{ID: "a", Source: "local", Similarity: 0.72},
		{ID: "b", Source: "local", Similarity: 0.95},
	}}
	mail := &stubSource{name: "mail", gated: true, results: []core.SearchResult{
		{ID: "c", Source: "mail", Similarity: 0.85},
	}}
	agg := NewAggregator(&staticTokens{tokens: map[string]string{"u1": "tok"}}, local, mail)

	resp := agg.Search(context.Background(), "status", []string{"local", "mail"}, "u1", nil)

	assert.Equal(t, 2, resp.Breakdown["local"])
	assert.Equal(t, 1, resp.Breakdown["mail"])
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "b", resp.Results[0].ID)
	assert.Equal(t, "c", resp.Results[1].ID)
	assert.Equal(t, "a", resp.Results[2].ID)
}

func TestSearch_NullTokenSkipsSourceNotCall(t *testing.T) {
	local := &stubSource{name: "local", results: []core.SearchResult{
		{ID: "a", Source: "local", Similarity: 0.8},
	}}
	external := &stubSource{name: "externalA", gated: true, results: []core.SearchResult{
		{ID: "x", Source: "externalA", Similarity: 0.9},
	}}
	// Token lookup yields nothing for this user.
	agg := NewAggregator(&staticTokens{tokens: map[string]string{}}, local, external)

	resp := agg.Search(context.Background(), "status", []string{"local", "externalA"}, "u1", nil)

	assert.Equal(t, 0, resp.Breakdown["externalA"])
	assert.Equal(t, 1, resp.Breakdown["local"])
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].ID)
}

func TestSearch_TokenProviderErrorIsNotFatal(t *testing.T) {
	local := &stubSource{name: "local", results: []core.SearchResult{{ID: "a", Similarity: 0.8}}}
	gated := &stubSource{name: "mail", gated: true}
	agg := NewAggregator(&staticTokens{err: errors.New("refresh failed")}, local, gated)

	resp := agg.Search(context.Background(), "q", []string{"local", "mail"}, "u1", nil)
	assert.Equal(t, 1, resp.Breakdown["local"])
	assert.Equal(t, 0, resp.Breakdown["mail"])
}

func TestSearch_SourceErrorDegrades(t *testing.T) {
	broken := &stubSource{name: "local", err: errors.New("connection refused")}
	agg := NewAggregator(nil, broken)

	resp := agg.Search(context.Background(), "q", []string{"local"}, "u1", nil)
	assert.Equal(t, 0, resp.Breakdown["local"])
	assert.Empty(t, resp.Results)
}

func TestSearch_GlobalFiltersBeforeCounting(t *testing.T) {
	now := time.Now()
	local := &stubSource{name: "local", results: []core.SearchResult{
		{ID: "old", Similarity: 0.9, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "weak", Similarity: 0.2, CreatedAt: now},
		{ID: "good", Similarity: 0.8, CreatedAt: now},
	}}
	agg := NewAggregator(nil, local)

	resp := agg.Search(context.Background(), "q", []string{"local"}, "u1", &Filters{
		MinSimilarity: 0.5,
		After:         now.Add(-time.Hour),
	})

	assert.Equal(t, 1, resp.Breakdown["local"])
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "good", resp.Results[0].ID)
}

func TestSearch_DuplicateSourceNamesQueriedOnce(t *testing.T) {
	local := &stubSource{name: "local", results: []core.SearchResult{
		{ID: "a", Source: "local", Similarity: 0.8},
		{ID: "b", Source: "local", Similarity: 0.6},
	}}
	agg := NewAggregator(nil, local)

	resp := agg.Search(context.Background(), "q", []string{"local", "local"}, "u1", nil)

	assert.Equal(t, 2, resp.Breakdown["local"])
	require.Len(t, resp.Results, 2)

	total := 0
	for _, n := range resp.Breakdown {
		total += n
	}
	assert.Equal(t, len(resp.Results), total)
}

func TestSearch_FiltersDoNotMutateSourceResults(t *testing.T) {
	// A caching adapter may hand out the same backing slice every call.
	shared := []core.SearchResult{
		{ID: "a", Similarity: 0.9},
		{ID: "b", Similarity: 0.1},
		{ID: "c", Similarity: 0.8},
	}
	local := &stubSource{name: "local", results: shared}
	agg := NewAggregator(nil, local)

	resp := agg.Search(context.Background(), "q", []string{"local"}, "u1",
		&Filters{MinSimilarity: 0.5})
	require.Len(t, resp.Results, 2)

	assert.Equal(t, "a", shared[0].ID)
	assert.Equal(t, "b", shared[1].ID)
	assert.Equal(t, "c", shared[2].ID)

	// A second pass over the same cached slice sees the full set again.
	resp = agg.Search(context.Background(), "q", []string{"local"}, "u1", nil)
	assert.Equal(t, 3, resp.Breakdown["local"])
}

func TestSearch_UnknownSourceIsZeroEntry(t *testing.T) {
	agg := NewAggregator(nil)
	resp := agg.Search(context.Background(), "q", []string{"nope"}, "u1", nil)
	assert.Equal(t, 0, resp.Breakdown["nope"])
	assert.Empty(t, resp.Results)
}

func TestLocalSource_MapsRows(t *testing.T) {
	searcher := &fakeSearcher{rows: []store.Row{
		{ID: "k1", ContentType: store.ContentTypeKnowledge, Title: "T", Content: "C", Similarity: 0.88},
	}}
	src := NewLocalSource(fakeEmbedder{}, searcher, "u1", 0)

	results, err := src.Search(context.Background(), "query", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "local", results[0].Source)
	assert.Equal(t, "k1", results[0].ID)
	assert.Equal(t, 0.88, results[0].Similarity)
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeSearcher struct {
	rows []store.Row
}

func (f *fakeSearcher) SearchAllContent(ctx context.Context, queryEmbedding []float32, userID string, matchThreshold float64, matchCount int, opts *store.SearchOptions) ([]store.Row, error) {
	return f.rows, nil
}

func TestExternalSource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "inbox status", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "msg-1", "title": "Weekly status", "snippet": "All green", "url": "https://mail.example/msg-1"},
			},
		})
	}))
	defer server.Close()

	src := NewExternalSource("mail", "email", server.URL)
	results, err := src.Search(context.Background(), "inbox status", "tok-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mail", results[0].Source)
	assert.Equal(t, "email", results[0].ContentType)
	assert.Equal(t, "Weekly status", results[0].Title)
	assert.Equal(t, "https://mail.example/msg-1", results[0].URL)
}

func TestExternalSource_RejectedTokenIsEmptyNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	src := NewExternalSource("mail", "email", server.URL)
	results, err := src.Search(context.Background(), "q", "expired")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExternalSource_ServerErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewExternalSource("mail", "email", server.URL)
	_, err := src.Search(context.Background(), "q", "tok")
	assert.Error(t, err)
}
