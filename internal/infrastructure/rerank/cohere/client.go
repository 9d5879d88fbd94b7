package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const (
	defaultModel   = "rerank-v3.5"
	defaultBaseURL = "https://api.cohere.com"
	requestTimeout = 30 * time.Second
)

// Client calls the Cohere v2 rerank API. Rerank returns
// domain.ErrNotConfigured when no key is stored; the retrieval layer
// fails open on that.
type Client struct {
	settings   ports.SettingsSource
	baseURL    string
	httpClient *http.Client
}

func New(settings ports.SettingsSource) *Client {
	return NewWithBaseURL(settings, defaultBaseURL)
}

func NewWithBaseURL(settings ports.SettingsSource, baseURL string) *Client {
	return &Client{
		settings:   settings,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]ports.RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	s, err := c.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	apiKey := s.RerankerAPIKey.Reveal()
	if apiKey == "" {
		return nil, domain.WrapError(domain.ErrNotConfigured, "rerank", errors.New("no reranker api key configured"))
	}
	model := s.RerankerModel
	if model == "" {
		model = defaultModel
	}

	payload := map[string]any{
		"model":     model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return nil, fmt.Errorf("rerank status: %s", resp.Status)
		}
		return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, msg)
	}

	var response struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	results := make([]ports.RerankResult, 0, len(response.Results))
	for _, r := range response.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank returned index %d for %d documents", r.Index, len(documents))
		}
		results = append(results, ports.RerankResult{
			Index:          r.Index,
			RelevanceScore: r.RelevanceScore,
		})
	}
	return results, nil
}
