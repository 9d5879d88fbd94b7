package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

// metadataInputLimit bounds how much document text goes to the model.
const metadataInputLimit = 10000

const metadataPrompt = `Analyze the following document and extract metadata. Respond with ONLY a JSON object in exactly this format:

{
  "topic": "2-5 word topic description",
  "document_type": "one of: meeting_notes, technical_doc, tutorial, report, email, notes, article, other",
  "summary": "1-2 sentence summary of the document",
  "key_entities": ["up to 10 people, organizations, or technologies mentioned"],
  "language": "language of the document, e.g. english"
}

Document content:
%s`

// MetadataExtractor asks the chat model for document metadata. Callers
// treat failures as best effort.
type MetadataExtractor struct {
	client *Client
}

func NewMetadataExtractor(client *Client) *MetadataExtractor {
	return &MetadataExtractor{client: client}
}

func (m *MetadataExtractor) ExtractMetadata(ctx context.Context, text string) (domain.DocumentMetadata, error) {
	runes := []rune(text)
	if len(runes) > metadataInputLimit {
		text = string(runes[:metadataInputLimit])
	}

	raw, err := m.client.complete(ctx, []chatMessage{
		{Role: "user", Content: fmt.Sprintf(metadataPrompt, text)},
	})
	if err != nil {
		return domain.DocumentMetadata{}, err
	}

	var meta domain.DocumentMetadata
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &meta); err != nil {
		return domain.DocumentMetadata{}, fmt.Errorf("parse metadata json: %w", err)
	}
	if !isKnownDocumentType(meta.DocumentType) {
		meta.DocumentType = "other"
	}
	if meta.KeyEntities == nil {
		meta.KeyEntities = []string{}
	}
	return meta, nil
}

// stripCodeFence removes a surrounding markdown fence; models add one
// despite the prompt.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isKnownDocumentType(t string) bool {
	for _, known := range documentTypes {
		if t == known {
			return true
		}
	}
	return false
}
