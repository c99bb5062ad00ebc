package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/recallhq/recall-go/core"
)

// ExternalSource is a token-gated HTTP search adapter for externally
// hosted providers (mail-like, drive-like). The provider is expected to
// expose GET {baseURL}/search?q=... returning a JSON item list.
type ExternalSource struct {
	name        string
	contentType string
	baseURL     string
	httpClient  *http.Client
}

// NewExternalSource creates an adapter. contentType tags the results
// (e.g. "email", "file").
func NewExternalSource(name, contentType, baseURL string) *ExternalSource {
	return &ExternalSource{
		name:        name,
		contentType: contentType,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *ExternalSource) Name() string        { return s.name }
func (s *ExternalSource) RequiresToken() bool { return true }

type externalItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// Search queries the provider. An unauthorized response means the token
// was rejected upstream; per the adapter contract that is an empty result,
// not an error.
func (s *ExternalSource) Search(ctx context.Context, query, token string) ([]core.SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", s.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Printf("[SEARCH] source %s rejected token (%d)", s.name, resp.StatusCode)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", s.name, resp.StatusCode)
	}

	var parsed struct {
		Items []externalItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", s.name, err)
	}

	results := make([]core.SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, core.SearchResult{
			ID:          item.ID,
			Source:      s.name,
			ContentType: s.contentType,
			Title:       item.Title,
			Content:     item.Snippet,
			// Provider-defined scale: external hits carry no vector
			// similarity, so rank them as exact-provider matches.
			Similarity: 1.0,
			CreatedAt:  item.Timestamp,
			URL:        item.URL,
		})
	}
	return results, nil
}

var _ Source = (*ExternalSource)(nil)
