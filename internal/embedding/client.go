package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Known provider presets
const (
	ProviderOpenAI = "openai"
	ProviderVoyage = "voyage"
)

// ClientConfig configures an OpenAI-compatible embeddings client
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Preset returns the default base URL, model and key variable for a provider
func Preset(provider string) (baseURL, model, apiKeyEnv string, ok bool) {
	switch provider {
	case ProviderOpenAI:
		return "https://api.openai.com/v1", "text-embedding-3-small", "OPENAI_API_KEY", true
	case ProviderVoyage:
		return "https://api.voyageai.com/v1", "voyage-3-lite", "VOYAGE_API_KEY", true
	}
	return "", "", "", false
}

// Client calls a POST {base}/embeddings endpoint
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// NewClient creates a new embeddings Client
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL, _, _, _ = Preset(ProviderOpenAI)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model not set")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/embeddings",
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the embedding model name
func (c *Client) Model() string {
	return c.model
}

// EmbedBatch generates embeddings for multiple texts in a single request
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(embeddingRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp embeddingResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ErrCountMismatch, len(texts), len(apiResp.Data))
	}

	// Providers are allowed to answer out of order
	sort.SliceStable(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	vectors := make([][]float64, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vectors[i] = d.Embedding
	}

	return vectors, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}
