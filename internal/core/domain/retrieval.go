package domain

// ScoreKind names the single score a candidate carries at any point of
// the retrieval pipeline.
type ScoreKind string

const (
	ScoreSimilarity ScoreKind = "similarity"
	ScoreRank       ScoreKind = "rank"
	ScoreRRF        ScoreKind = "rrf"
	ScoreRelevance  ScoreKind = "relevance"
)

type SearchFilter struct {
	DocumentType string
	Topic        string
}

type SearchCandidate struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`

	Topic        string `json:"topic,omitempty"`
	DocumentType string `json:"document_type,omitempty"`

	ScoreKind ScoreKind `json:"score_kind"`
	Score     float64   `json:"score"`
}

// Source is the per-document citation attached to an assistant answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
}
