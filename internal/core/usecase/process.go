package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const embedBatchSize = 50

type ProcessDocumentUseCase struct {
	documents ports.DocumentRepository
	chunkRepo ports.ChunkRepository
	extractor ports.TextExtractor
	metadata  ports.MetadataExtractor
	chunker   ports.Chunker
	mdChunker ports.Chunker
	embedder  ports.Embedder
}

func NewProcessDocumentUseCase(
	documents ports.DocumentRepository,
	chunkRepo ports.ChunkRepository,
	extractor ports.TextExtractor,
	metadata ports.MetadataExtractor,
	chunker ports.Chunker,
	mdChunker ports.Chunker,
	embedder ports.Embedder,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		documents: documents,
		chunkRepo: chunkRepo,
		extractor: extractor,
		metadata:  metadata,
		chunker:   chunker,
		mdChunker: mdChunker,
		embedder:  embedder,
	}
}

// ProcessByID drives the ingestion state machine for one document:
// pending -> processing -> completed, or failed with the pipeline error
// recorded on the document.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.documents.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, err := uc.pipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.documents.MarkCompleted(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) pipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return 0, err
	}

	meta := uc.extractMetadata(ctx, doc, text)

	chunks := uc.chunkerFor(doc.Filename).Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	if err := uc.embedAndStore(ctx, doc, meta, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.documents.GetByID(ctx, "", documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", errors.New("document contains no extractable text"))
	}
	return text, nil
}

// extractMetadata is best effort: a failed extraction leaves the
// document untagged and never fails the pipeline.
func (uc *ProcessDocumentUseCase) extractMetadata(ctx context.Context, doc *domain.Document, text string) domain.DocumentMetadata {
	if uc.metadata == nil {
		return domain.DocumentMetadata{}
	}
	meta, err := uc.metadata.ExtractMetadata(ctx, text)
	if err != nil {
		slog.Warn("metadata_extraction_failed", "document_id", doc.ID, "error", err)
		return domain.DocumentMetadata{}
	}
	if err := uc.documents.SaveMetadata(ctx, doc.ID, meta); err != nil {
		slog.Warn("metadata_save_failed", "document_id", doc.ID, "error", err)
	}
	return meta
}

func (uc *ProcessDocumentUseCase) chunkerFor(filename string) ports.Chunker {
	if uc.mdChunker != nil && strings.ToLower(filepath.Ext(filename)) == ".md" {
		return uc.mdChunker
	}
	return uc.chunker
}

// embedAndStore runs strictly sequential batches so a mid-document
// failure leaves earlier batches persisted and the document marked
// failed, never half-completed.
func (uc *ProcessDocumentUseCase) embedAndStore(
	ctx context.Context,
	doc *domain.Document,
	meta domain.DocumentMetadata,
	chunks []string,
) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := uc.embedder.Embed(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return domain.WrapError(domain.ErrInvalidInput, "embed batch",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)))
		}

		rows := make([]domain.Chunk, len(batch))
		for i, content := range batch {
			rows[i] = domain.Chunk{
				ID:           uuid.NewString(),
				DocumentID:   doc.ID,
				OwnerID:      doc.OwnerID,
				Index:        start + i,
				Content:      content,
				Embedding:    vectors[i],
				Filename:     doc.Filename,
				Topic:        meta.Topic,
				DocumentType: meta.DocumentType,
				KeyEntities:  meta.KeyEntities,
			}
		}
		if err := uc.chunkRepo.InsertBatch(ctx, rows); err != nil {
			return fmt.Errorf("insert chunk batch at %d: %w", start, err)
		}
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.documents.UpdateStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
