package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type searchRequest struct {
	Query        string `json:"query"`
	TopK         int    `json:"top_k"`
	DocumentType string `json:"document_type"`
	Topic        string `json:"topic"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = rt.retrievalTopK
	}

	start := time.Now()
	candidates, err := rt.retriever.Retrieve(r.Context(), owner, req.Query, topK, domain.SearchFilter{
		DocumentType: req.DocumentType,
		Topic:        req.Topic,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(serviceName, len(candidates), time.Since(start))
	}

	if candidates == nil {
		candidates = []domain.SearchCandidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": candidates})
}
