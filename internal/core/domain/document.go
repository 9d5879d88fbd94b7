package domain

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	StoragePath string         `json:"storage_path"`
	ContentHash string         `json:"content_hash"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	Error       string         `json:"error_message,omitempty"`

	Topic        string   `json:"topic,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	KeyEntities  []string `json:"key_entities,omitempty"`
	Language     string   `json:"language,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentMetadata is the best-effort LLM extraction; a zero value is
// valid and leaves the document untagged.
type DocumentMetadata struct {
	Topic        string   `json:"topic"`
	DocumentType string   `json:"document_type"`
	Summary      string   `json:"summary"`
	KeyEntities  []string `json:"key_entities"`
	Language     string   `json:"language"`
}

type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	OwnerID    string    `json:"owner_id"`
	Index      int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`

	Filename     string   `json:"filename"`
	Topic        string   `json:"topic,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
	KeyEntities  []string `json:"key_entities,omitempty"`
}
