package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// Embedder calls the /embeddings endpoint. One call per batch; the
// limiter paces outbound requests against provider rate limits.
type Embedder struct {
	settings ports.SettingsSource
	client   *Client
	limiter  *rate.Limiter
}

func NewEmbedder(settings ports.SettingsSource, client *Client, requestsPerSecond float64) *Embedder {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &Embedder{
		settings: settings,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	s, err := e.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	apiKey := s.EmbeddingAPIKey.Reveal()
	if apiKey == "" {
		return nil, domain.WrapError(domain.ErrNotConfigured, "embed", errors.New("no embedding api key configured"))
	}

	model := s.EmbeddingModel
	if model == "" {
		model = defaultEmbeddingModel
	}
	baseURL := s.EmbeddingBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model": model,
		"input": texts,
	}
	if s.EmbeddingDimensions > 0 {
		payload["dimensions"] = s.EmbeddingDimensions
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.client.jsonClient.Do(req)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", fmt.Errorf("embed request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, wrapTemporaryIfNeeded("embed", newHTTPStatusError("embed", resp))
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("embed returned %d vectors for %d inputs", len(response.Data), len(texts))
	}

	// Providers are allowed to return rows out of order.
	sort.Slice(response.Data, func(i, j int) bool {
		return response.Data[i].Index < response.Data[j].Index
	})
	vectors := make([][]float32, len(response.Data))
	for i, row := range response.Data {
		vectors[i] = row.Embedding
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}
