package usecase

import (
	"fmt"
	"sort"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

// fuseCandidatesRRF merges the vector and keyword result lists with
// reciprocal rank fusion. When only one list produced results it passes
// through unchanged, keeping the native score of that path.
func fuseCandidatesRRF(vector, keyword []domain.SearchCandidate, rrfK int) []domain.SearchCandidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	switch {
	case len(vector) == 0 && len(keyword) == 0:
		return nil
	case len(keyword) == 0:
		return dedupeCandidates(vector)
	case len(vector) == 0:
		return dedupeCandidates(keyword)
	}

	type fused struct {
		candidate domain.SearchCandidate
		score     float64
		seen      bool
	}

	acc := make(map[string]*fused, len(vector)+len(keyword))
	order := make([]string, 0, len(vector)+len(keyword))
	addList := func(candidates []domain.SearchCandidate) {
		for rank, candidate := range candidates {
			key := candidateKey(candidate)
			entry, ok := acc[key]
			if !ok {
				entry = &fused{candidate: candidate}
				acc[key] = entry
				order = append(order, key)
			}
			entry.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	addList(vector)
	addList(keyword)

	out := make([]domain.SearchCandidate, 0, len(order))
	for _, key := range order {
		entry := acc[key]
		if entry.seen {
			continue
		}
		entry.seen = true
		candidate := entry.candidate
		candidate.Score = entry.score
		candidate.ScoreKind = domain.ScoreRRF
		out = append(out, candidate)
	}

	// Equal scores keep arrival order: the stable sort over the
	// insertion-ordered slice is the whole tie-break.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return out
}

// dedupeCandidates keeps the first occurrence of each chunk, preserving
// the backend's ranking order.
func dedupeCandidates(candidates []domain.SearchCandidate) []domain.SearchCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.SearchCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := candidateKey(candidate)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func trimCandidates(candidates []domain.SearchCandidate, limit int) []domain.SearchCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}

func candidateKey(candidate domain.SearchCandidate) string {
	if candidate.ChunkID != "" {
		return candidate.ChunkID
	}
	return fmt.Sprintf("%s:%d", candidate.DocumentID, candidate.ChunkIndex)
}
