package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

func newDocRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func documentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "filename", "content_type", "storage_path", "content_hash",
		"status", "chunk_count", "error_message", "topic", "document_type", "summary",
		"key_entities", "language", "created_at", "updated_at",
	})
}

func TestCreateUniqueViolationIsConflict(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "documents_owner_id_filename_key"})

	err := repo.Create(context.Background(), &domain.Document{
		ID:      "doc-1",
		OwnerID: "owner-1",
	})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, owner_id, filename").
		WithArgs("missing", "owner-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "owner-1", "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDWithoutOwnerSkipsOwnerFilter(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, owner_id, filename").
		WithArgs("doc-1", "").
		WillReturnRows(documentRows().AddRow(
			"doc-1", "owner-1", "notes.txt", "text/plain", "owner-1/blob.txt", "hash",
			"completed", 3, "", "work", "report", "summary", `["acme"]`, "en", now, now,
		))

	doc, err := repo.GetByID(context.Background(), "", "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.OwnerID != "owner-1" || doc.Status != domain.StatusCompleted {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.KeyEntities) != 1 || doc.KeyEntities[0] != "acme" {
		t.Fatalf("key entities not decoded: %v", doc.KeyEntities)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkCompletedWritesChunkCount(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.StatusCompleted), 42, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkCompleted(context.Background(), "doc-1", 42); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveMetadataReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", "work", "report", "sum", sqlmock.AnyArg(), "en", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveMetadata(context.Background(), "missing", domain.DocumentMetadata{
		Topic:        "work",
		DocumentType: "report",
		Summary:      "sum",
		KeyEntities:  []string{"acme"},
		Language:     "en",
	})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHasCompletedDocuments(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("owner-1", string(domain.StatusCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasCompletedDocuments(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("HasCompletedDocuments() error = %v", err)
	}
	if !ok {
		t.Fatalf("expected true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
