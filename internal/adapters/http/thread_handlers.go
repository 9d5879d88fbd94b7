package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type createThreadRequest struct {
	Title string `json:"title"`
}

func (rt *Router) createThread(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	var req createThreadRequest
	if r.Body != nil {
		// An empty body is fine, the title just defaults.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New conversation"
	}

	now := time.Now().UTC()
	thread := &domain.Thread{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := rt.threads.CreateThread(r.Context(), thread); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

func (rt *Router) listThreads(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	threads, err := rt.threads.ListThreads(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	if threads == nil {
		threads = []domain.Thread{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (rt *Router) getThread(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	id := chi.URLParam(r, "threadID")

	thread, err := rt.threads.GetThread(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (rt *Router) deleteThread(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	id := chi.URLParam(r, "threadID")

	if err := rt.threads.DeleteThread(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listMessages(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	id := chi.URLParam(r, "threadID")

	if _, err := rt.threads.GetThread(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	messages, err := rt.threads.ListMessages(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
