package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type chatRequest struct {
	Message string `json:"message"`
}

// chatStream runs one chat turn over SSE. The user message is persisted
// before streaming starts, the assistant message after the stream
// finishes, so a dropped connection loses at most the answer.
func (rt *Router) chatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := ownerFromContext(ctx)
	threadID := chi.URLParam(r, "threadID")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	if _, err := rt.threads.GetThread(ctx, owner, threadID); err != nil {
		writeError(w, err)
		return
	}

	previous, err := rt.threads.ListMessages(ctx, owner, threadID)
	if err != nil {
		writeError(w, err)
		return
	}

	userMessage := &domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		OwnerID:   owner,
		Role:      domain.RoleUser,
		Content:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := rt.threads.AppendMessage(ctx, userMessage); err != nil {
		writeError(w, err)
		return
	}

	history := turnsFromMessages(previous)
	history = append(history, domain.Turn{Role: domain.RoleUser, Content: message})

	sse, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	answer, sources, streamErr := rt.chat.Stream(ctx, owner, history, func(event domain.StreamEvent) error {
		return sse.WriteEvent(string(event.Kind), streamEventPayload(event))
	})
	if streamErr != nil {
		// The error and done events already went out over the stream.
		return
	}

	assistantMessage := &domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		OwnerID:   owner,
		Role:      domain.RoleAssistant,
		Content:   answer,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	if err := rt.threads.AppendMessage(ctx, assistantMessage); err != nil {
		slog.Error("persist_assistant_message_failed", "thread_id", threadID, "error", err)
	}
}

func streamEventPayload(event domain.StreamEvent) any {
	switch event.Kind {
	case domain.EventTextDelta:
		return map[string]string{"content": event.Text}
	case domain.EventSources:
		return map[string]any{"sources": event.Sources}
	case domain.EventError:
		return map[string]string{"error": event.Message}
	default:
		return map[string]any{}
	}
}

// turnsFromMessages keeps only user and assistant content. Tool turns
// are transient and never persisted, so history rebuilds cleanly.
func turnsFromMessages(messages []domain.Message) []domain.Turn {
	turns := make([]domain.Turn, 0, len(messages))
	for _, m := range messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		turns = append(turns, domain.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
