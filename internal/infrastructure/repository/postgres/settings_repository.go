package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

// SettingsRepository reads and writes the single global_settings row
// seeded by EnsureSchema. The cipher is only used to wrap stored key
// columns into Secrets on read.
type SettingsRepository struct {
	db     *sql.DB
	cipher domain.SecretCipher
}

func NewSettingsRepository(db *sql.DB, cipher domain.SecretCipher) *SettingsRepository {
	return &SettingsRepository{db: db, cipher: cipher}
}

func (r *SettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT llm_model, llm_base_url, llm_api_key,
       embedding_model, embedding_base_url, embedding_api_key, embedding_dimensions,
       reranker_model, reranker_api_key, updated_at
FROM global_settings
WHERE id = 1
`)

	var s domain.Settings
	var llmKey, embeddingKey, rerankerKey string
	err := row.Scan(
		&s.LLMModel, &s.LLMBaseURL, &llmKey,
		&s.EmbeddingModel, &s.EmbeddingBaseURL, &embeddingKey, &s.EmbeddingDimensions,
		&s.RerankerModel, &rerankerKey, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "load settings", errors.New("settings row missing"))
		}
		return nil, fmt.Errorf("scan settings: %w", err)
	}

	s.LLMAPIKey = domain.NewSecret(llmKey, r.cipher)
	s.EmbeddingAPIKey = domain.NewSecret(embeddingKey, r.cipher)
	s.RerankerAPIKey = domain.NewSecret(rerankerKey, r.cipher)
	return &s, nil
}

func (r *SettingsRepository) Update(ctx context.Context, s *domain.Settings) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE global_settings
SET llm_model = $1, llm_base_url = $2, llm_api_key = $3,
    embedding_model = $4, embedding_base_url = $5, embedding_api_key = $6, embedding_dimensions = $7,
    reranker_model = $8, reranker_api_key = $9, updated_at = $10
WHERE id = 1
`,
		s.LLMModel, s.LLMBaseURL, s.LLMAPIKey.Stored(),
		s.EmbeddingModel, s.EmbeddingBaseURL, s.EmbeddingAPIKey.Stored(), s.EmbeddingDimensions,
		s.RerankerModel, s.RerankerAPIKey.Stored(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update settings: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "update settings", errors.New("settings row missing"))
	}
	return nil
}
