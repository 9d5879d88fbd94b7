package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

// SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, owner_id, filename, content_type, storage_path, content_hash, status, chunk_count, error_message, topic, document_type, summary, key_entities, language, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	entitiesJSON, err := json.Marshal(entitiesOrEmpty(doc.KeyEntities))
	if err != nil {
		return fmt.Errorf("marshal key entities: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, owner_id, filename, content_type, storage_path, content_hash, status, chunk_count, error_message, topic, document_type, summary, key_entities, language, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		doc.ID, doc.OwnerID, doc.Filename, doc.ContentType, doc.StoragePath, doc.ContentHash,
		string(doc.Status), doc.ChunkCount, doc.Error, doc.Topic, doc.DocumentType, doc.Summary,
		entitiesJSON, doc.Language, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		// The UNIQUE(owner_id, filename) constraint backstops the
		// check-then-insert race in the upload path; the loser surfaces
		// as a conflict, not a server error.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.WrapError(domain.ErrConflict, "insert document", err)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetByID with an empty ownerID skips the owner filter; the worker
// loads documents by id alone.
func (r *DocumentRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1 AND ($2 = '' OR owner_id = $2)
`, id, ownerID)

	return scanDocument(row, id)
}

func (r *DocumentRepository) GetByOwnerAndFilename(ctx context.Context, ownerID, filename string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1 AND filename = $2
`, ownerID, filename)

	return scanDocument(row, filename)
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows, "")
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res, "update document status", id)
}

func (r *DocumentRepository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, chunk_count = $3, error_message = '', updated_at = $4
WHERE id = $1
`, id, string(domain.StatusCompleted), chunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark document completed: %w", err)
	}
	return requireRow(res, "mark document completed", id)
}

func (r *DocumentRepository) SaveMetadata(ctx context.Context, id string, meta domain.DocumentMetadata) error {
	entitiesJSON, err := json.Marshal(entitiesOrEmpty(meta.KeyEntities))
	if err != nil {
		return fmt.Errorf("marshal key entities: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET topic = $2, document_type = $3, summary = $4, key_entities = $5, language = $6, updated_at = $7
WHERE id = $1
`, id, meta.Topic, meta.DocumentType, meta.Summary, entitiesJSON, meta.Language, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save document metadata: %w", err)
	}
	return requireRow(res, "save document metadata", id)
}

// ResetForReingest points an existing document at a new blob and hash
// and returns it to pending, clearing all processing results.
func (r *DocumentRepository) ResetForReingest(ctx context.Context, id, storagePath, contentType, contentHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET storage_path = $2, content_type = $3, content_hash = $4,
    status = $5, chunk_count = 0, error_message = '',
    topic = '', document_type = '', summary = '', key_entities = '[]'::jsonb, language = '',
    updated_at = $6
WHERE id = $1
`, id, storagePath, contentType, contentHash, string(domain.StatusPending), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reset document: %w", err)
	}
	return requireRow(res, "reset document", id)
}

func (r *DocumentRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM documents
WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res, "delete document", id)
}

func (r *DocumentRepository) HasCompletedDocuments(ctx context.Context, ownerID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM documents WHERE owner_id = $1 AND status = $2
)
`, ownerID, string(domain.StatusCompleted))

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check completed documents: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, ref string) (*domain.Document, error) {
	var doc domain.Document
	var entitiesRaw []byte
	var status string

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.Filename, &doc.ContentType, &doc.StoragePath, &doc.ContentHash,
		&status, &doc.ChunkCount, &doc.Error, &doc.Topic, &doc.DocumentType, &doc.Summary,
		&entitiesRaw, &doc.Language, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "load document", fmt.Errorf("document %s", ref))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if len(entitiesRaw) > 0 {
		if err := json.Unmarshal(entitiesRaw, &doc.KeyEntities); err != nil {
			return nil, fmt.Errorf("unmarshal key entities: %w", err)
		}
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func requireRow(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("document %s", id))
	}
	return nil
}

func entitiesOrEmpty(entities []string) []string {
	if entities == nil {
		return []string{}
	}
	return entities
}
