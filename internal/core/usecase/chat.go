package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const maxToolRounds = 3

const chatSystemPrompt = `You are a helpful assistant that answers questions using the user's uploaded documents.

When the question may be covered by the documents, call the search_documents tool. Use the document_type or topic filters only when the user explicitly names a category or topic; otherwise search without filters. Answer from the retrieved content and say so when the documents do not contain the answer. Keep answers concise.`

const (
	fallbackAfterTools = "I gathered information from your documents but couldn't compose a final answer. Please try rephrasing your question."
	fallbackNoAnswer   = "I'm not sure how to answer that. Try asking about your uploaded documents."
	errorNotConfigured = "The assistant is not configured yet. Add language model credentials in settings."
	errorGeneric       = "Something went wrong while generating a response. Please try again."
)

// StreamObserver receives per-stream counters. Implementations must
// not block.
type StreamObserver interface {
	StreamFinished(status string, toolRounds int)
	ToolExecuted(tool, status string)
}

// ChatStreamUseCase runs the bounded tool-calling loop for one chat
// turn and translates model output into stream events. The done event
// is emitted exactly once, always last, on every path.
type ChatStreamUseCase struct {
	model     ports.ChatModel
	tools     *ToolExecutor
	documents ports.DocumentRepository
	observer  StreamObserver
}

func NewChatStreamUseCase(
	model ports.ChatModel,
	tools *ToolExecutor,
	documents ports.DocumentRepository,
) *ChatStreamUseCase {
	return &ChatStreamUseCase{
		model:     model,
		tools:     tools,
		documents: documents,
	}
}

func (uc *ChatStreamUseCase) SetObserver(o StreamObserver) {
	uc.observer = o
}

func (uc *ChatStreamUseCase) observeStream(status string, toolRounds int) {
	if uc.observer != nil {
		uc.observer.StreamFinished(status, toolRounds)
	}
}

func (uc *ChatStreamUseCase) observeTool(tool, result string) {
	if uc.observer == nil {
		return
	}
	status := "ok"
	switch {
	case strings.HasPrefix(result, "Error:"):
		status = "error"
	case result == noResultsText:
		status = "no_results"
	}
	uc.observer.ToolExecuted(tool, status)
}

// toolCallBuffer assembles streamed tool-call fragments keyed by their
// stream index; argument fragments concatenate in arrival order.
type toolCallBuffer struct {
	calls map[int]*domain.ToolCallRecord
}

func newToolCallBuffer() *toolCallBuffer {
	return &toolCallBuffer{calls: make(map[int]*domain.ToolCallRecord)}
}

func (b *toolCallBuffer) add(event ports.ModelEvent) {
	call, ok := b.calls[event.ToolCallIndex]
	if !ok {
		call = &domain.ToolCallRecord{}
		b.calls[event.ToolCallIndex] = call
	}
	if event.ToolCallID != "" {
		call.ID = event.ToolCallID
	}
	if event.ToolCallName != "" {
		call.Name = event.ToolCallName
	}
	call.Arguments += event.ArgsFragment
}

func (b *toolCallBuffer) ordered() []domain.ToolCallRecord {
	indexes := make([]int, 0, len(b.calls))
	for idx := range b.calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]domain.ToolCallRecord, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, *b.calls[idx])
	}
	return out
}

func (uc *ChatStreamUseCase) Stream(
	ctx context.Context,
	ownerID string,
	history []domain.Turn,
	emit func(domain.StreamEvent) error,
) (string, []domain.Source, error) {
	turns := make([]domain.Turn, 0, len(history)+1)
	turns = append(turns, domain.Turn{Role: domain.RoleSystem, Content: chatSystemPrompt})
	turns = append(turns, history...)

	var (
		answer         strings.Builder
		sources        []domain.Source
		sourceDocs     = map[string]struct{}{}
		sourcesEmitted bool
		toolsExecuted  bool
		toolRounds     int
	)

	// The sources event goes out once, just before the first text that
	// follows any tool execution.
	emitDelta := func(text string) error {
		if toolsExecuted && !sourcesEmitted && len(sources) > 0 {
			if err := emit(domain.StreamEvent{Kind: domain.EventSources, Sources: sources}); err != nil {
				return err
			}
			sourcesEmitted = true
		}
		answer.WriteString(text)
		return emit(domain.StreamEvent{Kind: domain.EventTextDelta, Text: text})
	}

	finish := func() error {
		if !sourcesEmitted && len(sources) > 0 {
			if err := emit(domain.StreamEvent{Kind: domain.EventSources, Sources: sources}); err != nil {
				return err
			}
			sourcesEmitted = true
		}
		if answer.Len() == 0 {
			fallback := fallbackNoAnswer
			if toolsExecuted {
				fallback = fallbackAfterTools
			}
			answer.WriteString(fallback)
			if err := emit(domain.StreamEvent{Kind: domain.EventTextDelta, Text: fallback}); err != nil {
				return err
			}
		}
		return emit(domain.StreamEvent{Kind: domain.EventDone})
	}

	for {
		withTools := uc.toolsAvailable(ctx, ownerID) && toolRounds < maxToolRounds

		buffer := newToolCallBuffer()
		finishReason := ""
		streamErr := uc.model.StreamCompletion(ctx, turns, withTools, func(event ports.ModelEvent) error {
			switch {
			case event.IsToolDelta:
				buffer.add(event)
			case event.TextDelta != "":
				if err := emitDelta(event.TextDelta); err != nil {
					return err
				}
			}
			if event.FinishReason != "" {
				finishReason = event.FinishReason
			}
			return nil
		})
		if streamErr != nil {
			message := errorGeneric
			if domain.IsKind(streamErr, domain.ErrNotConfigured) {
				message = errorNotConfigured
			}
			slog.Error("chat_stream_failed", "error", streamErr)
			uc.observeStream("error", toolRounds)
			if err := emit(domain.StreamEvent{Kind: domain.EventError, Message: message}); err != nil {
				return answer.String(), sources, err
			}
			if err := emit(domain.StreamEvent{Kind: domain.EventDone}); err != nil {
				return answer.String(), sources, err
			}
			return answer.String(), sources, streamErr
		}

		calls := buffer.ordered()
		if finishReason != "tool_calls" || len(calls) == 0 {
			break
		}
		// The cap must not rely on the provider honoring an absent tool
		// schema; once spent, buffered calls are dropped and the turn
		// finishes with whatever text accumulated.
		if toolRounds >= maxToolRounds {
			slog.Warn("tool_round_cap_reached", "dropped_calls", len(calls))
			break
		}

		turns = append(turns, domain.Turn{Role: domain.RoleAssistant, ToolCalls: calls})
		for _, call := range calls {
			result, callSources := uc.tools.Execute(ctx, ownerID, call)
			uc.observeTool(call.Name, result)
			for _, source := range callSources {
				if _, ok := sourceDocs[source.DocumentID]; ok {
					continue
				}
				sourceDocs[source.DocumentID] = struct{}{}
				sources = append(sources, source)
			}
			turns = append(turns, domain.Turn{
				Role:       domain.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
		toolsExecuted = true
		toolRounds++
	}

	if err := finish(); err != nil {
		return answer.String(), sources, err
	}
	uc.observeStream("ok", toolRounds)
	return answer.String(), sources, nil
}

// toolsAvailable offers the search tool only when the owner has at
// least one completed document to search.
func (uc *ChatStreamUseCase) toolsAvailable(ctx context.Context, ownerID string) bool {
	has, err := uc.documents.HasCompletedDocuments(ctx, ownerID)
	if err != nil {
		slog.Warn("completed_documents_check_failed", "error", err)
		return false
	}
	return has
}
