package ports

import (
	"context"
	"io"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error)
	GetByOwnerAndFilename(ctx context.Context, ownerID, filename string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkCompleted(ctx context.Context, id string, chunkCount int) error
	SaveMetadata(ctx context.Context, id string, meta domain.DocumentMetadata) error
	ResetForReingest(ctx context.Context, id, storagePath, contentType, contentHash string) error
	Delete(ctx context.Context, ownerID, id string) error
	HasCompletedDocuments(ctx context.Context, ownerID string) (bool, error)
}

// ChunkRepository persists chunk rows and runs both search paths.
type ChunkRepository interface {
	InsertBatch(ctx context.Context, chunks []domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	CountAll(ctx context.Context) (int, error)
	SearchVector(ctx context.Context, ownerID string, queryVector []float32, limit int, threshold float64, filter domain.SearchFilter) ([]domain.SearchCandidate, error)
	SearchKeyword(ctx context.Context, ownerID, queryText string, limit int, filter domain.SearchFilter) ([]domain.SearchCandidate, error)
}

// BlobStore stores raw uploaded documents.
type BlobStore interface {
	Save(ctx context.Context, key string, data io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// IngestQueue submits documents for background processing.
type IngestQueue interface {
	Submit(ctx context.Context, documentID string) error
	Subscribe(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a stored document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunk batches and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ModelEvent is one unit of a streamed chat completion.
type ModelEvent struct {
	TextDelta string

	ToolCallIndex int
	ToolCallID    string
	ToolCallName  string
	ArgsFragment  string
	IsToolDelta   bool

	FinishReason string
}

// ChatModel streams a completion, invoking fn for every event in
// arrival order. A non-nil fn error aborts the stream.
type ChatModel interface {
	StreamCompletion(ctx context.Context, turns []domain.Turn, withTools bool, fn func(ModelEvent) error) error
}

// MetadataExtractor derives document metadata from text, best effort.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, text string) (domain.DocumentMetadata, error)
}

// Reranker reorders candidate texts by relevance to the query.
// Implementations return domain.ErrNotConfigured when no credentials
// are present; callers fail open.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
}

type RerankResult struct {
	Index          int
	RelevanceScore float64
}

// SettingsRepository reads and writes the single global settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, s *domain.Settings) error
}

// SettingsSource is the cached read side handed to provider adapters.
type SettingsSource interface {
	Current(ctx context.Context) (*domain.Settings, error)
}

// ThreadRepository persists chat threads and their messages.
type ThreadRepository interface {
	CreateThread(ctx context.Context, t *domain.Thread) error
	GetThread(ctx context.Context, ownerID, id string) (*domain.Thread, error)
	ListThreads(ctx context.Context, ownerID string) ([]domain.Thread, error)
	DeleteThread(ctx context.Context, ownerID, id string) error
	AppendMessage(ctx context.Context, m *domain.Message) error
	ListMessages(ctx context.Context, ownerID, threadID string) ([]domain.Message, error)
}
