package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

func newChunkRepoWithMock(t *testing.T) (*ChunkRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChunkRepository{db: db}, mock, func() { _ = db.Close() }
}

func candidateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "document_id", "chunk_index", "filename", "content", "topic", "document_type", "score",
	})
}

func TestInsertBatchRunsInOneTransaction(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO chunks")
	prep.ExpectExec().
		WithArgs("c-1", "doc-1", "owner-1", 0, "first", sqlmock.AnyArg(), "notes.txt", "work", "report", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("c-2", "doc-1", "owner-1", 1, "second", sqlmock.AnyArg(), "notes.txt", "work", "report", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InsertBatch(context.Background(), []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1", OwnerID: "owner-1", Index: 0, Content: "first", Embedding: []float32{0.1, 0.2}, Filename: "notes.txt", Topic: "work", DocumentType: "report"},
		{ID: "c-2", DocumentID: "doc-1", OwnerID: "owner-1", Index: 1, Content: "second", Embedding: []float32{0.3, 0.4}, Filename: "notes.txt", Topic: "work", DocumentType: "report"},
	})
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertBatchEmptyIsNoop(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	if err := repo.InsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchVectorTagsSimilarity(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, document_id, chunk_index").
		WithArgs(sqlmock.AnyArg(), "owner-1", 0.3, 10).
		WillReturnRows(candidateRows().
			AddRow("c-1", "doc-1", 0, "notes.txt", "body", "work", "report", 0.91).
			AddRow("c-2", "doc-2", 4, "other.md", "text", "", "", 0.52))

	got, err := repo.SearchVector(context.Background(), "owner-1", []float32{0.1, 0.2}, 10, 0.3, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("SearchVector() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ScoreKind != domain.ScoreSimilarity || got[0].Score != 0.91 {
		t.Fatalf("unexpected first candidate: %+v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchVectorAppliesFilters(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, document_id, chunk_index").
		WithArgs(sqlmock.AnyArg(), "owner-1", 0.3, "report", "finance", 5).
		WillReturnRows(candidateRows())

	got, err := repo.SearchVector(context.Background(), "owner-1", []float32{0.1}, 5, 0.3, domain.SearchFilter{
		DocumentType: "report",
		Topic:        "finance",
	})
	if err != nil {
		t.Fatalf("SearchVector() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchKeywordTagsRank(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, document_id, chunk_index").
		WithArgs("quarterly report", "owner-1", 10).
		WillReturnRows(candidateRows().
			AddRow("c-3", "doc-3", 2, "q3.txt", "quarterly numbers", "", "report", 0.23))

	got, err := repo.SearchKeyword(context.Background(), "owner-1", "quarterly report", 10, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("SearchKeyword() error = %v", err)
	}
	if len(got) != 1 || got[0].ScoreKind != domain.ScoreRank {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountAll(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountAll(context.Background())
	if err != nil {
		t.Fatalf("CountAll() error = %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
