package cohere

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type settingsFake struct {
	s *domain.Settings
}

func (f settingsFake) Current(context.Context) (*domain.Settings, error) {
	return f.s, nil
}

func TestRerankParsesResults(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, `{"results":[{"index":2,"relevance_score":0.98},{"index":0,"relevance_score":0.41}]}`)
	}))
	defer server.Close()

	client := NewWithBaseURL(settingsFake{s: &domain.Settings{
		RerankerAPIKey: domain.NewSecret("co-key", nil),
	}}, server.URL)

	results, err := client.Rerank(context.Background(), "query", []string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if gotAuth != "Bearer co-key" {
		t.Fatalf("unexpected auth %q", gotAuth)
	}
	if gotBody["model"] != "rerank-v3.5" {
		t.Fatalf("expected default model, got %v", gotBody["model"])
	}
	if len(results) != 2 || results[0].Index != 2 || results[0].RelevanceScore != 0.98 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRerankNotConfigured(t *testing.T) {
	client := New(settingsFake{s: &domain.Settings{}})

	_, err := client.Rerank(context.Background(), "query", []string{"a"}, 1)
	if !domain.IsKind(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestRerankRejectsOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[{"index":5,"relevance_score":0.9}]}`)
	}))
	defer server.Close()

	client := NewWithBaseURL(settingsFake{s: &domain.Settings{
		RerankerAPIKey: domain.NewSecret("co-key", nil),
	}}, server.URL)

	if _, err := client.Rerank(context.Background(), "query", []string{"a"}, 1); err == nil {
		t.Fatalf("expected error for out of range index")
	}
}

func TestRerankEmptyDocumentsIsNoop(t *testing.T) {
	client := New(settingsFake{s: &domain.Settings{}})

	results, err := client.Rerank(context.Background(), "query", nil, 3)
	if err != nil || results != nil {
		t.Fatalf("expected nil/nil, got %v/%v", results, err)
	}
}
