package ports

import (
	"context"
	"io"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, ownerID, filename, contentType string, body io.Reader) (*domain.Document, error)
	Delete(ctx context.Context, ownerID, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentRetriever is the inbound contract for hybrid search.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, ownerID, query string, topK int, filter domain.SearchFilter) ([]domain.SearchCandidate, error)
}

// ChatStreamer runs one chat turn against a thread and emits stream
// events through emit. The final assistant text and its sources are
// returned for persistence.
type ChatStreamer interface {
	Stream(ctx context.Context, ownerID string, history []domain.Turn, emit func(domain.StreamEvent) error) (string, []domain.Source, error)
}
