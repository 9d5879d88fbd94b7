package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func metadataServer(t *testing.T, content string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []chatMessage `json:"messages"`
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		if capture != nil && len(payload.Messages) > 0 {
			*capture = payload.Messages[0].Content
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractMetadataStripsCodeFence(t *testing.T) {
	body := "```json\n{\"topic\":\"team sync\",\"document_type\":\"meeting_notes\",\"summary\":\"Weekly sync.\",\"key_entities\":[\"acme\"],\"language\":\"english\"}\n```"
	server := metadataServer(t, body, nil)
	defer server.Close()

	extractor := NewMetadataExtractor(NewClient(testSettings(server.URL)))
	meta, err := extractor.ExtractMetadata(context.Background(), "notes from the weekly sync")
	if err != nil {
		t.Fatalf("ExtractMetadata() error = %v", err)
	}
	if meta.Topic != "team sync" || meta.DocumentType != "meeting_notes" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestExtractMetadataNormalizesUnknownType(t *testing.T) {
	body := `{"topic":"x","document_type":"novel","summary":"s","key_entities":[],"language":"english"}`
	server := metadataServer(t, body, nil)
	defer server.Close()

	extractor := NewMetadataExtractor(NewClient(testSettings(server.URL)))
	meta, err := extractor.ExtractMetadata(context.Background(), "text")
	if err != nil {
		t.Fatalf("ExtractMetadata() error = %v", err)
	}
	if meta.DocumentType != "other" {
		t.Fatalf("expected other, got %q", meta.DocumentType)
	}
}

func TestExtractMetadataTruncatesInput(t *testing.T) {
	var prompt string
	body := `{"topic":"x","document_type":"other","summary":"s","key_entities":[],"language":"english"}`
	server := metadataServer(t, body, &prompt)
	defer server.Close()

	extractor := NewMetadataExtractor(NewClient(testSettings(server.URL)))
	long := strings.Repeat("q", metadataInputLimit+500)
	if _, err := extractor.ExtractMetadata(context.Background(), long); err != nil {
		t.Fatalf("ExtractMetadata() error = %v", err)
	}
	if got := strings.Count(prompt, "q"); got != metadataInputLimit {
		t.Fatalf("input not truncated: %d chars", got)
	}
}

func TestExtractMetadataMalformedJSONFails(t *testing.T) {
	server := metadataServer(t, "not json at all", nil)
	defer server.Close()

	extractor := NewMetadataExtractor(NewClient(testSettings(server.URL)))
	if _, err := extractor.ExtractMetadata(context.Background(), "text"); err == nil {
		t.Fatalf("expected parse error")
	}
}
