package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const (
	defaultTopK           = 5
	candidateMultiplier   = 3
	defaultRRFK           = 60
	defaultMatchThreshold = 0.3
)

type HybridRetrieveUseCase struct {
	embedder ports.Embedder
	chunks   ports.ChunkRepository
	reranker ports.Reranker

	matchThreshold float64
	rrfK           int
}

func NewHybridRetrieveUseCase(
	embedder ports.Embedder,
	chunks ports.ChunkRepository,
	reranker ports.Reranker,
	matchThreshold float64,
	rrfK int,
) *HybridRetrieveUseCase {
	if matchThreshold <= 0 {
		matchThreshold = defaultMatchThreshold
	}
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	return &HybridRetrieveUseCase{
		embedder:       embedder,
		chunks:         chunks,
		reranker:       reranker,
		matchThreshold: matchThreshold,
		rrfK:           rrfK,
	}
}

// Retrieve runs both search paths concurrently, fuses their results and
// reranks the head of the fused list. A failure on either path degrades
// to the other path instead of failing the request.
func (uc *HybridRetrieveUseCase) Retrieve(
	ctx context.Context,
	ownerID, query string,
	topK int,
	filter domain.SearchFilter,
) ([]domain.SearchCandidate, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	candidateLimit := candidateMultiplier * topK

	var vectorHits, keywordHits []domain.SearchCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := uc.searchVector(gctx, ownerID, query, candidateLimit, filter)
		if err != nil {
			slog.Warn("retrieval_path_failed", "path", "vector", "error", err)
			return nil
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := uc.chunks.SearchKeyword(gctx, ownerID, query, candidateLimit, filter)
		if err != nil {
			slog.Warn("retrieval_path_failed", "path", "keyword", "error", err)
			return nil
		}
		keywordHits = hits
		return nil
	})
	_ = g.Wait()

	fused := fuseCandidatesRRF(vectorHits, keywordHits, uc.rrfK)
	if len(fused) == 0 {
		return nil, nil
	}

	fused = uc.rerank(ctx, query, fused, topK)
	return trimCandidates(fused, topK), nil
}

func (uc *HybridRetrieveUseCase) searchVector(
	ctx context.Context,
	ownerID, query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.SearchCandidate, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return uc.chunks.SearchVector(ctx, ownerID, queryVector, limit, uc.matchThreshold, filter)
}

// rerank reorders the top candidates by model relevance. Any reranker
// failure, including missing credentials, falls back to the fused order.
func (uc *HybridRetrieveUseCase) rerank(
	ctx context.Context,
	query string,
	fused []domain.SearchCandidate,
	topN int,
) []domain.SearchCandidate {
	if uc.reranker == nil || len(fused) == 0 {
		return fused
	}
	if topN <= 0 || topN > len(fused) {
		topN = len(fused)
	}

	documents := make([]string, topN)
	for i := range documents {
		documents[i] = fused[i].Content
	}

	results, err := uc.reranker.Rerank(ctx, query, documents, topN)
	if err != nil {
		if !domain.IsKind(err, domain.ErrNotConfigured) {
			slog.Warn("rerank_failed", "error", err)
		}
		return fused
	}

	reordered := make([]domain.SearchCandidate, 0, len(fused))
	used := make(map[int]struct{}, len(results))
	for _, result := range results {
		if result.Index < 0 || result.Index >= topN {
			continue
		}
		if _, ok := used[result.Index]; ok {
			continue
		}
		used[result.Index] = struct{}{}
		candidate := fused[result.Index]
		candidate.Score = result.RelevanceScore
		candidate.ScoreKind = domain.ScoreRelevance
		reordered = append(reordered, candidate)
	}
	if len(reordered) == 0 {
		return fused
	}

	// Candidates the reranker did not score keep their fused order.
	for i := 0; i < topN; i++ {
		if _, ok := used[i]; !ok {
			reordered = append(reordered, fused[i])
		}
	}
	reordered = append(reordered, fused[topN:]...)
	return reordered
}
