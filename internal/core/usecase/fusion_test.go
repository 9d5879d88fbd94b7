package usecase

import (
	"math"
	"testing"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

func TestFuseCandidatesRRFCombinesBothLists(t *testing.T) {
	vector := []domain.SearchCandidate{
		{ChunkID: "c1", DocumentID: "doc-1", Filename: "a.txt", ScoreKind: domain.ScoreSimilarity, Score: 0.9},
		{ChunkID: "c2", DocumentID: "doc-2", Filename: "b.txt", ScoreKind: domain.ScoreSimilarity, Score: 0.8},
	}
	keyword := []domain.SearchCandidate{
		{ChunkID: "c2", DocumentID: "doc-2", Filename: "b.txt", ScoreKind: domain.ScoreRank, Score: 1.2},
		{ChunkID: "c3", DocumentID: "doc-3", Filename: "c.txt", ScoreKind: domain.ScoreRank, Score: 0.7},
	}

	fused := fuseCandidatesRRF(vector, keyword, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}
	if fused[0].ChunkID != "c2" {
		t.Fatalf("expected c2 first after fusion, got %s", fused[0].ChunkID)
	}

	// c2 appears at rank 2 in the vector list and rank 1 in the
	// keyword list.
	want := 1.0/62.0 + 1.0/61.0
	if math.Abs(fused[0].Score-want) > 1e-9 {
		t.Fatalf("expected rrf score %f, got %f", want, fused[0].Score)
	}
	for _, candidate := range fused {
		if candidate.ScoreKind != domain.ScoreRRF {
			t.Fatalf("expected rrf score kind, got %s", candidate.ScoreKind)
		}
	}
}

func TestFuseCandidatesRRFSingleListPassthrough(t *testing.T) {
	vector := []domain.SearchCandidate{
		{ChunkID: "c1", DocumentID: "doc-1", ScoreKind: domain.ScoreSimilarity, Score: 0.91},
		{ChunkID: "c2", DocumentID: "doc-2", ScoreKind: domain.ScoreSimilarity, Score: 0.77},
	}

	fused := fuseCandidatesRRF(vector, nil, 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[0].Score != 0.91 || fused[0].ScoreKind != domain.ScoreSimilarity {
		t.Fatalf("expected native similarity score preserved, got %s=%f", fused[0].ScoreKind, fused[0].Score)
	}

	keyword := []domain.SearchCandidate{
		{ChunkID: "c3", DocumentID: "doc-3", ScoreKind: domain.ScoreRank, Score: 0.42},
	}
	fused = fuseCandidatesRRF(nil, keyword, 60)
	if len(fused) != 1 || fused[0].ScoreKind != domain.ScoreRank {
		t.Fatalf("expected native rank score preserved, got %+v", fused)
	}
}

func TestFuseCandidatesRRFEmptyInputs(t *testing.T) {
	if got := fuseCandidatesRRF(nil, nil, 60); got != nil {
		t.Fatalf("expected nil for empty inputs, got %v", got)
	}
}

func TestFuseCandidatesRRFDeduplicatesKeepFirst(t *testing.T) {
	vector := []domain.SearchCandidate{
		{ChunkID: "c1", DocumentID: "doc-1", Content: "first", ScoreKind: domain.ScoreSimilarity, Score: 0.9},
		{ChunkID: "c1", DocumentID: "doc-1", Content: "duplicate", ScoreKind: domain.ScoreSimilarity, Score: 0.5},
	}

	fused := fuseCandidatesRRF(vector, nil, 60)
	if len(fused) != 1 {
		t.Fatalf("expected duplicate collapsed, got %d", len(fused))
	}
	if fused[0].Content != "first" {
		t.Fatalf("expected first occurrence kept, got %q", fused[0].Content)
	}
}

func TestFuseCandidatesRRFTieBreakKeepsArrivalOrder(t *testing.T) {
	// Both candidates land on the same fused score (rank 1 on their
	// path). The vector hit arrived first and must stay first even
	// though its ids sort after the keyword hit's.
	vector := []domain.SearchCandidate{{ChunkID: "z-chunk", DocumentID: "doc-z"}}
	keyword := []domain.SearchCandidate{{ChunkID: "a-chunk", DocumentID: "doc-a"}}

	fused := fuseCandidatesRRF(vector, keyword, 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[0].Score != fused[1].Score {
		t.Fatalf("expected a tie, got %f and %f", fused[0].Score, fused[1].Score)
	}
	if fused[0].ChunkID != "z-chunk" || fused[1].ChunkID != "a-chunk" {
		t.Fatalf("expected arrival order on ties, got %s then %s", fused[0].ChunkID, fused[1].ChunkID)
	}
}

func TestTrimCandidates(t *testing.T) {
	candidates := []domain.SearchCandidate{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}}

	if got := trimCandidates(candidates, 2); len(got) != 2 {
		t.Fatalf("expected trim to 2, got %d", len(got))
	}
	if got := trimCandidates(candidates, 0); len(got) != 3 {
		t.Fatalf("expected no trim for zero limit, got %d", len(got))
	}
	if got := trimCandidates(candidates, 10); len(got) != 3 {
		t.Fatalf("expected no trim for large limit, got %d", len(got))
	}
}
