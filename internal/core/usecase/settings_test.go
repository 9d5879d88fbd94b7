package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type settingsRepoFake struct {
	settings *domain.Settings
	getCalls int
	updated  *domain.Settings
}

func (f *settingsRepoFake) Get(context.Context) (*domain.Settings, error) {
	f.getCalls++
	copySettings := *f.settings
	return &copySettings, nil
}

func (f *settingsRepoFake) Update(_ context.Context, s *domain.Settings) error {
	copySettings := *s
	f.updated = &copySettings
	f.settings = &copySettings
	return nil
}

type cipherFake struct{}

func (cipherFake) Encrypt(plain string) (string, error) { return "enc:" + plain, nil }

func (cipherFake) Decrypt(stored string) (string, error) {
	if len(stored) > 4 && stored[:4] == "enc:" {
		return stored[4:], nil
	}
	return "", errors.New("not encrypted")
}

func baseSettings(cipher domain.SecretCipher) *domain.Settings {
	return &domain.Settings{
		LLMModel:            "gpt-4o-mini",
		LLMBaseURL:          "https://api.openai.com/v1",
		LLMAPIKey:           domain.NewSecret("enc:sk-old-llm", cipher),
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingBaseURL:    "https://api.openai.com/v1",
		EmbeddingAPIKey:     domain.NewSecret("enc:sk-old-embed", cipher),
		EmbeddingDimensions: 1536,
	}
}

func TestSettingsCurrentCaches(t *testing.T) {
	cipher := cipherFake{}
	repo := &settingsRepoFake{settings: baseSettings(cipher)}
	uc := NewSettingsUseCase(repo, &chunkRepoFake{}, cipher)

	if _, err := uc.Current(context.Background()); err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if _, err := uc.Current(context.Background()); err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if repo.getCalls != 1 {
		t.Fatalf("expected cached read, got %d repo calls", repo.getCalls)
	}

	uc.Invalidate()
	if _, err := uc.Current(context.Background()); err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if repo.getCalls != 2 {
		t.Fatalf("expected reload after invalidate, got %d repo calls", repo.getCalls)
	}
}

func TestSettingsUpdateEncryptsNewKeys(t *testing.T) {
	cipher := cipherFake{}
	repo := &settingsRepoFake{settings: baseSettings(cipher)}
	uc := NewSettingsUseCase(repo, &chunkRepoFake{}, cipher)

	updated, err := uc.Update(context.Background(), SettingsUpdate{
		LLMModel:            "gpt-4o",
		LLMBaseURL:          "https://api.openai.com/v1",
		LLMAPIKey:           "sk-new-llm",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingBaseURL:    "https://api.openai.com/v1",
		EmbeddingDimensions: 1536,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.LLMAPIKey.Stored() != "enc:sk-new-llm" {
		t.Fatalf("expected encrypted storage, got %q", updated.LLMAPIKey.Stored())
	}
	if updated.LLMAPIKey.Reveal() != "sk-new-llm" {
		t.Fatalf("expected reveal roundtrip, got %q", updated.LLMAPIKey.Reveal())
	}
	if updated.LLMModel != "gpt-4o" {
		t.Fatalf("model not updated")
	}
}

func TestSettingsUpdateKeepsMaskedAndEmptySecrets(t *testing.T) {
	cipher := cipherFake{}
	repo := &settingsRepoFake{settings: baseSettings(cipher)}
	uc := NewSettingsUseCase(repo, &chunkRepoFake{}, cipher)

	updated, err := uc.Update(context.Background(), SettingsUpdate{
		LLMModel:            "gpt-4o-mini",
		LLMBaseURL:          "https://api.openai.com/v1",
		LLMAPIKey:           "***-llm",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingBaseURL:    "https://api.openai.com/v1",
		EmbeddingAPIKey:     "",
		EmbeddingDimensions: 1536,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.LLMAPIKey.Reveal() != "sk-old-llm" {
		t.Fatalf("masked value must keep stored secret, got %q", updated.LLMAPIKey.Reveal())
	}
	if updated.EmbeddingAPIKey.Reveal() != "sk-old-embed" {
		t.Fatalf("empty value must keep stored secret, got %q", updated.EmbeddingAPIKey.Reveal())
	}
}

func TestSettingsUpdateBlocksEmbeddingChangeWithChunks(t *testing.T) {
	cipher := cipherFake{}
	repo := &settingsRepoFake{settings: baseSettings(cipher)}
	uc := NewSettingsUseCase(repo, &chunkRepoFake{count: 12}, cipher)

	_, err := uc.Update(context.Background(), SettingsUpdate{
		LLMModel:            "gpt-4o-mini",
		LLMBaseURL:          "https://api.openai.com/v1",
		EmbeddingModel:      "text-embedding-3-large",
		EmbeddingBaseURL:    "https://api.openai.com/v1",
		EmbeddingDimensions: 3072,
	})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if repo.updated != nil {
		t.Fatalf("settings must not be written on conflict")
	}
}

func TestSettingsUpdateAllowsEmbeddingChangeWithoutChunks(t *testing.T) {
	cipher := cipherFake{}
	repo := &settingsRepoFake{settings: baseSettings(cipher)}
	uc := NewSettingsUseCase(repo, &chunkRepoFake{count: 0}, cipher)

	updated, err := uc.Update(context.Background(), SettingsUpdate{
		EmbeddingModel:      "text-embedding-3-large",
		EmbeddingBaseURL:    "https://api.openai.com/v1",
		EmbeddingDimensions: 3072,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.EmbeddingModel != "text-embedding-3-large" || updated.EmbeddingDimensions != 3072 {
		t.Fatalf("embedding settings not applied: %+v", updated)
	}
}

func TestSecretRevealFallsBackToPlaintext(t *testing.T) {
	secret := domain.NewSecret("sk-legacy-plain", cipherFake{})
	if got := secret.Reveal(); got != "sk-legacy-plain" {
		t.Fatalf("expected plaintext fallback, got %q", got)
	}
}

func TestSecretMasked(t *testing.T) {
	secret := domain.NewSecret("enc:sk-abcdef", cipherFake{})
	if got := secret.Masked(); got != "***cdef" {
		t.Fatalf("expected masked suffix, got %q", got)
	}
	empty := domain.NewSecret("", cipherFake{})
	if got := empty.Masked(); got != "" {
		t.Fatalf("expected empty mask, got %q", got)
	}
}
