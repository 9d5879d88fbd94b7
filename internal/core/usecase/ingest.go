package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const maxUploadBytes = 10 << 20

var allowedExtensions = map[string]struct{}{
	".txt": {},
	".md":  {},
	".pdf": {},
}

type UploadDocumentUseCase struct {
	documents ports.DocumentRepository
	chunks    ports.ChunkRepository
	storage   ports.BlobStore
	queue     ports.IngestQueue
}

func NewUploadDocumentUseCase(
	documents ports.DocumentRepository,
	chunks ports.ChunkRepository,
	storage ports.BlobStore,
	queue ports.IngestQueue,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		documents: documents,
		chunks:    chunks,
		storage:   storage,
		queue:     queue,
	}
}

// Upload stores the raw file, records a pending document and submits it
// for background processing. Re-uploading identical content of an
// already completed document is a no-op; re-uploading changed content
// resets the document and replaces its chunks. Uploads against a
// document whose ingestion is still in flight are rejected as a
// conflict.
func (uc *UploadDocumentUseCase) Upload(
	ctx context.Context,
	ownerID, filename, contentType string,
	body io.Reader,
) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unsupported file type: %s", ext))
	}

	data, err := readCapped(body, maxUploadBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("empty file"))
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	// Lookup and insert are separate statements; two concurrent uploads
	// of the same filename can both pass the lookup.
	existing, err := uc.documents.GetByOwnerAndFilename(ctx, ownerID, filename)
	if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup existing document: %w", err)
	}

	if existing != nil {
		// Replacing under a live worker run would let stale chunks land
		// after the reset; only terminal documents may be replaced.
		if existing.Status == domain.StatusPending || existing.Status == domain.StatusProcessing {
			return nil, domain.WrapError(domain.ErrConflict, "upload document",
				fmt.Errorf("document %s is still being processed", existing.ID))
		}
		if existing.ContentHash == contentHash && existing.Status == domain.StatusCompleted {
			slog.Info("upload_skipped_unchanged", "document_id", existing.ID, "filename", filename)
			return existing, nil
		}
		return uc.replace(ctx, existing, ownerID, filename, contentType, contentHash, ext, data)
	}

	return uc.create(ctx, ownerID, filename, contentType, contentHash, ext, data)
}

func (uc *UploadDocumentUseCase) create(
	ctx context.Context,
	ownerID, filename, contentType, contentHash, ext string,
	data []byte,
) (*domain.Document, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s%s", ownerID, id, ext)
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(data), contentType); err != nil {
		return nil, fmt.Errorf("save to blob store: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		OwnerID:     ownerID,
		Filename:    filename,
		ContentType: contentType,
		StoragePath: storageKey,
		ContentHash: contentHash,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.Submit(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("submit for processing: %w", err)
	}
	return doc, nil
}

func (uc *UploadDocumentUseCase) replace(
	ctx context.Context,
	existing *domain.Document,
	ownerID, filename, contentType, contentHash, ext string,
	data []byte,
) (*domain.Document, error) {
	storageKey := fmt.Sprintf("%s/%s%s", ownerID, uuid.NewString(), ext)

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(data), contentType); err != nil {
		return nil, fmt.Errorf("save replacement to blob store: %w", err)
	}
	if err := uc.chunks.DeleteByDocument(ctx, existing.ID); err != nil {
		return nil, fmt.Errorf("delete stale chunks: %w", err)
	}
	if err := uc.documents.ResetForReingest(ctx, existing.ID, storageKey, contentType, contentHash); err != nil {
		return nil, fmt.Errorf("reset document record: %w", err)
	}
	if existing.StoragePath != "" && existing.StoragePath != storageKey {
		if err := uc.storage.Remove(ctx, existing.StoragePath); err != nil {
			slog.Warn("remove_previous_blob_failed", "key", existing.StoragePath, "error", err)
		}
	}

	doc, err := uc.documents.GetByID(ctx, ownerID, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("reload document record: %w", err)
	}

	if err := uc.queue.Submit(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("submit for processing: %w", err)
	}
	return doc, nil
}

// Delete removes the blob best-effort, then the chunk rows and the
// document record.
func (uc *UploadDocumentUseCase) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := uc.documents.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	if doc.StoragePath != "" {
		if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
			slog.Warn("remove_blob_failed", "key", doc.StoragePath, "error", err)
		}
	}
	if err := uc.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := uc.documents.Delete(ctx, ownerID, doc.ID); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}

func readCapped(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("file exceeds %d bytes", limit))
	}
	return data, nil
}
