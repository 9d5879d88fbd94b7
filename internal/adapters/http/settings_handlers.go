package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/usecase"
)

// settingsResponse is the masked API view. Secret values never leave
// the server, only *** plus the last four characters.
type settingsResponse struct {
	LLMModel   string `json:"llm_model"`
	LLMBaseURL string `json:"llm_base_url"`
	LLMAPIKey  string `json:"llm_api_key"`

	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingBaseURL    string `json:"embedding_base_url"`
	EmbeddingAPIKey     string `json:"embedding_api_key"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`

	RerankerModel  string `json:"reranker_model"`
	RerankerAPIKey string `json:"reranker_api_key"`

	UpdatedAt time.Time `json:"updated_at"`
}

func maskedSettings(s *domain.Settings) settingsResponse {
	return settingsResponse{
		LLMModel:            s.LLMModel,
		LLMBaseURL:          s.LLMBaseURL,
		LLMAPIKey:           s.LLMAPIKey.Masked(),
		EmbeddingModel:      s.EmbeddingModel,
		EmbeddingBaseURL:    s.EmbeddingBaseURL,
		EmbeddingAPIKey:     s.EmbeddingAPIKey.Masked(),
		EmbeddingDimensions: s.EmbeddingDimensions,
		RerankerModel:       s.RerankerModel,
		RerankerAPIKey:      s.RerankerAPIKey.Masked(),
		UpdatedAt:           s.UpdatedAt,
	}
}

func (rt *Router) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := rt.settings.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, maskedSettings(settings))
}

type settingsUpdateRequest struct {
	LLMModel   string `json:"llm_model"`
	LLMBaseURL string `json:"llm_base_url"`
	LLMAPIKey  string `json:"llm_api_key"`

	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingBaseURL    string `json:"embedding_base_url"`
	EmbeddingAPIKey     string `json:"embedding_api_key"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`

	RerankerModel  string `json:"reranker_model"`
	RerankerAPIKey string `json:"reranker_api_key"`
}

func (rt *Router) updateSettings(w http.ResponseWriter, r *http.Request) {
	if !isAdminFromContext(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
		return
	}

	var req settingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := rt.settings.Update(r.Context(), usecase.SettingsUpdate{
		LLMModel:            req.LLMModel,
		LLMBaseURL:          req.LLMBaseURL,
		LLMAPIKey:           req.LLMAPIKey,
		EmbeddingModel:      req.EmbeddingModel,
		EmbeddingBaseURL:    req.EmbeddingBaseURL,
		EmbeddingAPIKey:     req.EmbeddingAPIKey,
		EmbeddingDimensions: req.EmbeddingDimensions,
		RerankerModel:       req.RerankerModel,
		RerankerAPIKey:      req.RerankerAPIKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, maskedSettings(updated))
}
