package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type passthroughCipher struct{}

func (passthroughCipher) Encrypt(plain string) (string, error)  { return plain, nil }
func (passthroughCipher) Decrypt(stored string) (string, error) { return stored, nil }

func TestSettingsGetWrapsSecrets(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewSettingsRepository(db, passthroughCipher{})

	mock.ExpectQuery("SELECT llm_model").
		WillReturnRows(sqlmock.NewRows([]string{
			"llm_model", "llm_base_url", "llm_api_key",
			"embedding_model", "embedding_base_url", "embedding_api_key", "embedding_dimensions",
			"reranker_model", "reranker_api_key", "updated_at",
		}).AddRow(
			"gpt-4o-mini", "https://api.openai.com/v1", "sk-llm",
			"text-embedding-3-small", "https://api.openai.com/v1", "sk-embed", 1536,
			"rerank-v3.5", "", time.Now().UTC(),
		))

	s, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.LLMAPIKey.Reveal() != "sk-llm" {
		t.Fatalf("llm key not wrapped: %q", s.LLMAPIKey.Reveal())
	}
	if s.RerankerAPIKey.IsSet() {
		t.Fatalf("empty reranker key must not be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSettingsUpdateWritesStoredValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewSettingsRepository(db, passthroughCipher{})

	mock.ExpectExec("UPDATE global_settings").
		WithArgs(
			"gpt-4o", "https://api.openai.com/v1", "enc:sk-llm",
			"text-embedding-3-small", "https://api.openai.com/v1", "enc:sk-embed", 1536,
			"", "", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &domain.Settings{
		LLMModel:            "gpt-4o",
		LLMBaseURL:          "https://api.openai.com/v1",
		LLMAPIKey:           domain.NewSecret("enc:sk-llm", nil),
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingBaseURL:    "https://api.openai.com/v1",
		EmbeddingAPIKey:     domain.NewSecret("enc:sk-embed", nil),
		EmbeddingDimensions: 1536,
	}
	if err := repo.Update(context.Background(), s); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
