package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type ThreadRepository struct {
	db *sql.DB
}

func NewThreadRepository(db *sql.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func (r *ThreadRepository) CreateThread(ctx context.Context, t *domain.Thread) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO threads (id, owner_id, title, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
`, t.ID, t.OwnerID, t.Title, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

func (r *ThreadRepository) GetThread(ctx context.Context, ownerID, id string) (*domain.Thread, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, title, created_at, updated_at
FROM threads
WHERE id = $1 AND owner_id = $2
`, id, ownerID)

	var t domain.Thread
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "load thread", fmt.Errorf("thread %s", id))
		}
		return nil, fmt.Errorf("scan thread: %w", err)
	}
	return &t, nil
}

func (r *ThreadRepository) ListThreads(ctx context.Context, ownerID string) ([]domain.Thread, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, title, created_at, updated_at
FROM threads
WHERE owner_id = $1
ORDER BY updated_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		var t domain.Thread
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return threads, nil
}

func (r *ThreadRepository) DeleteThread(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM threads
WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete thread: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete thread", fmt.Errorf("thread %s", id))
	}
	return nil
}

// AppendMessage also bumps the thread's updated_at so thread listings
// sort by last activity.
func (r *ThreadRepository) AppendMessage(ctx context.Context, m *domain.Message) error {
	sourcesJSON, err := json.Marshal(sourcesOrEmpty(m.Sources))
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO messages (id, thread_id, owner_id, role, content, sources, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, m.ID, m.ThreadID, m.OwnerID, string(m.Role), m.Content, sourcesJSON, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
UPDATE threads SET updated_at = $2 WHERE id = $1
`, m.ThreadID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message tx: %w", err)
	}
	return nil
}

func (r *ThreadRepository) ListMessages(ctx context.Context, ownerID, threadID string) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, thread_id, owner_id, role, content, sources, created_at
FROM messages
WHERE thread_id = $1 AND owner_id = $2
ORDER BY created_at
`, threadID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		var sourcesRaw []byte
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.OwnerID, &role, &m.Content, &sourcesRaw, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(sourcesRaw) > 0 {
			if err := json.Unmarshal(sourcesRaw, &m.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		m.Role = domain.Role(role)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func sourcesOrEmpty(sources []domain.Source) []domain.Source {
	if sources == nil {
		return []domain.Source{}
	}
	return sources
}
