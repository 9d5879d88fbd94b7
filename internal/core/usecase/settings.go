package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

// SettingsUseCase serves the single global settings row with a small
// cache so provider adapters do not hit the database per request.
// Update invalidates the cache.
type SettingsUseCase struct {
	repo   ports.SettingsRepository
	chunks ports.ChunkRepository
	cipher domain.SecretCipher

	mu     sync.RWMutex
	cached *domain.Settings
}

func NewSettingsUseCase(
	repo ports.SettingsRepository,
	chunks ports.ChunkRepository,
	cipher domain.SecretCipher,
) *SettingsUseCase {
	return &SettingsUseCase{
		repo:   repo,
		chunks: chunks,
		cipher: cipher,
	}
}

func (uc *SettingsUseCase) Current(ctx context.Context) (*domain.Settings, error) {
	uc.mu.RLock()
	cached := uc.cached
	uc.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	settings, err := uc.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	uc.mu.Lock()
	uc.cached = settings
	uc.mu.Unlock()
	return settings, nil
}

func (uc *SettingsUseCase) Invalidate() {
	uc.mu.Lock()
	uc.cached = nil
	uc.mu.Unlock()
}

// SettingsUpdate carries the full settings payload. Secret fields that
// arrive masked or empty keep their stored value.
type SettingsUpdate struct {
	LLMModel   string
	LLMBaseURL string
	LLMAPIKey  string

	EmbeddingModel      string
	EmbeddingBaseURL    string
	EmbeddingAPIKey     string
	EmbeddingDimensions int

	RerankerModel  string
	RerankerAPIKey string
}

func (uc *SettingsUseCase) Update(ctx context.Context, update SettingsUpdate) (*domain.Settings, error) {
	current, err := uc.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	embeddingChanged := update.EmbeddingModel != current.EmbeddingModel ||
		update.EmbeddingBaseURL != current.EmbeddingBaseURL ||
		update.EmbeddingDimensions != current.EmbeddingDimensions
	if embeddingChanged {
		count, err := uc.chunks.CountAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("count chunks: %w", err)
		}
		if count > 0 {
			return nil, domain.WrapError(domain.ErrConflict, "update settings",
				errors.New("embedding settings cannot change while indexed chunks exist"))
		}
	}

	next := *current
	next.LLMModel = update.LLMModel
	next.LLMBaseURL = update.LLMBaseURL
	next.EmbeddingModel = update.EmbeddingModel
	next.EmbeddingBaseURL = update.EmbeddingBaseURL
	next.EmbeddingDimensions = update.EmbeddingDimensions
	next.RerankerModel = update.RerankerModel

	if next.LLMAPIKey, err = uc.applySecret(current.LLMAPIKey, update.LLMAPIKey); err != nil {
		return nil, err
	}
	if next.EmbeddingAPIKey, err = uc.applySecret(current.EmbeddingAPIKey, update.EmbeddingAPIKey); err != nil {
		return nil, err
	}
	if next.RerankerAPIKey, err = uc.applySecret(current.RerankerAPIKey, update.RerankerAPIKey); err != nil {
		return nil, err
	}

	if err := uc.repo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	uc.Invalidate()
	return &next, nil
}

func (uc *SettingsUseCase) applySecret(current domain.Secret, incoming string) (domain.Secret, error) {
	if incoming == "" || domain.IsMaskedValue(incoming) {
		return current, nil
	}
	if uc.cipher == nil {
		return domain.NewSecret(incoming, nil), nil
	}
	encrypted, err := uc.cipher.Encrypt(incoming)
	if err != nil {
		return domain.Secret{}, fmt.Errorf("encrypt secret: %w", err)
	}
	return domain.NewSecret(encrypted, uc.cipher), nil
}
