package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) InsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, document_id, owner_id, chunk_index, content, embedding, filename, topic, document_type, key_entities)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		entitiesJSON, err := json.Marshal(entitiesOrEmpty(c.KeyEntities))
		if err != nil {
			return fmt.Errorf("marshal key entities: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.OwnerID, c.Index, c.Content,
			pgvector.NewVector(c.Embedding), c.Filename, c.Topic, c.DocumentType, entitiesJSON,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (r *ChunkRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// SearchVector ranks by cosine similarity, keeping only rows at or
// above the threshold.
func (r *ChunkRepository) SearchVector(ctx context.Context, ownerID string, queryVector []float32, limit int, threshold float64, filter domain.SearchFilter) ([]domain.SearchCandidate, error) {
	args := []any{pgvector.NewVector(queryVector), ownerID, threshold}
	where := []string{"owner_id = $2", "embedding IS NOT NULL", "1 - (embedding <=> $1) >= $3"}
	where, args = appendFilter(where, args, filter)
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, document_id, chunk_index, filename, content, topic, document_type,
       1 - (embedding <=> $1) AS score
FROM chunks
WHERE %s
ORDER BY embedding <=> $1
LIMIT $%d
`, strings.Join(where, " AND "), len(args))

	return r.queryCandidates(ctx, query, args, domain.ScoreSimilarity)
}

// SearchKeyword runs Postgres full-text search ranked by ts_rank.
func (r *ChunkRepository) SearchKeyword(ctx context.Context, ownerID, queryText string, limit int, filter domain.SearchFilter) ([]domain.SearchCandidate, error) {
	args := []any{queryText, ownerID}
	where := []string{"owner_id = $2", "to_tsvector('english', content) @@ plainto_tsquery('english', $1)"}
	where, args = appendFilter(where, args, filter)
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, document_id, chunk_index, filename, content, topic, document_type,
       ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)) AS score
FROM chunks
WHERE %s
ORDER BY score DESC
LIMIT $%d
`, strings.Join(where, " AND "), len(args))

	return r.queryCandidates(ctx, query, args, domain.ScoreRank)
}

func appendFilter(where []string, args []any, filter domain.SearchFilter) ([]string, []any) {
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		where = append(where, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if filter.Topic != "" {
		args = append(args, filter.Topic)
		where = append(where, fmt.Sprintf("topic ILIKE '%%' || $%d || '%%'", len(args)))
	}
	return where, args
}

func (r *ChunkRepository) queryCandidates(ctx context.Context, query string, args []any, kind domain.ScoreKind) ([]domain.SearchCandidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var candidates []domain.SearchCandidate
	for rows.Next() {
		var c domain.SearchCandidate
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.ChunkIndex, &c.Filename, &c.Content, &c.Topic, &c.DocumentType, &c.Score); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.ScoreKind = kind
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}
