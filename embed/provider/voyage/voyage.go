// Package voyage implements the embedding Provider against the Voyage AI
// HTTP API.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config configures the Voyage provider.
type Config struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// Model selects the embedding model (default: voyage-3).
	Model string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	// Timeout bounds each HTTP request (default: 30s).
	Timeout time.Duration
}

// Provider calls the Voyage embeddings endpoint.
type Provider struct {
	config     Config
	httpClient *http.Client
	dimensions int
}

// New creates a Voyage provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "voyage-3"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.voyageai.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	dimensions := 1024
	switch config.Model {
	case "voyage-3-large":
		dimensions = 1024
	case "voyage-3-lite":
		dimensions = 512
	case "voyage-code-3":
		dimensions = 1024
	}

	return &Provider{
		config:     config,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Dimensions returns the embedding dimension for the configured model.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed converts texts to vectors in one API call.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: p.config.Model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/embeddings", p.config.BaseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.config.APIKey))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voyage API error (%d): %s", resp.StatusCode, string(raw))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode voyage response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("voyage returned %d embeddings for %d inputs", len(parsed.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("voyage returned out-of-range index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
