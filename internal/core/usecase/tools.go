package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const noResultsText = "No relevant documents found."

// ToolExecutor resolves buffered tool calls into the closed invocation
// set and runs them against the retriever.
type ToolExecutor struct {
	retriever ports.DocumentRetriever
	topK      int
}

func NewToolExecutor(retriever ports.DocumentRetriever, topK int) *ToolExecutor {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ToolExecutor{retriever: retriever, topK: topK}
}

func parseToolInvocation(call domain.ToolCallRecord) (domain.ToolInvocation, error) {
	switch call.Name {
	case "search_documents":
		var args domain.SearchDocumentsCall
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse tool arguments", err)
		}
		return args, nil
	default:
		return nil, &domain.UnknownToolError{Name: call.Name}
	}
}

// Execute returns the tool result text handed back to the model plus
// the sources backing it. Failures become result text, not errors: the
// model gets to react and the chat stream stays alive.
func (e *ToolExecutor) Execute(ctx context.Context, ownerID string, call domain.ToolCallRecord) (string, []domain.Source) {
	invocation, err := parseToolInvocation(call)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	switch inv := invocation.(type) {
	case domain.SearchDocumentsCall:
		return e.searchDocuments(ctx, ownerID, inv)
	default:
		return fmt.Sprintf("Error: unknown tool: %s", call.Name), nil
	}
}

func (e *ToolExecutor) searchDocuments(ctx context.Context, ownerID string, call domain.SearchDocumentsCall) (string, []domain.Source) {
	if strings.TrimSpace(call.Query) == "" {
		return "Error: search query is empty", nil
	}

	candidates, err := e.retriever.Retrieve(ctx, ownerID, call.Query, e.topK, domain.SearchFilter{
		DocumentType: call.DocumentType,
		Topic:        call.Topic,
	})
	if err != nil {
		return fmt.Sprintf("Error: search failed: %v", err), nil
	}
	if len(candidates) == 0 {
		return noResultsText, nil
	}

	return formatSearchResults(candidates), sourcesFromCandidates(candidates)
}

// formatSearchResults renders candidates as source blocks for the
// model, labelled with the one score each candidate carries.
func formatSearchResults(candidates []domain.SearchCandidate) string {
	blocks := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		header := fmt.Sprintf("[Source: %s] (%s: %.3f)", candidate.Filename, candidate.ScoreKind, candidate.Score)
		blocks = append(blocks, header+"\n"+candidate.Content)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// sourcesFromCandidates dedupes by document, keeping the first (best
// ranked) chunk's score per document.
func sourcesFromCandidates(candidates []domain.SearchCandidate) []domain.Source {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Source, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate.DocumentID]; ok {
			continue
		}
		seen[candidate.DocumentID] = struct{}{}
		out = append(out, domain.Source{
			DocumentID: candidate.DocumentID,
			Filename:   candidate.Filename,
			Score:      candidate.Score,
		})
	}
	return out
}
