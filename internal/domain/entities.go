package domain

import (
	"fmt"
	"time"
)

// DefaultSpaceID is the space used when a caller does not pick one.
const DefaultSpaceID = "default"

// Space is a logical partition of the document collection.
type Space struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Document is one ingested source file. It is never stored as a record of
// its own; it is derived from the chunks sharing a file id.
type Document struct {
	FileID         string    `json:"file_id"`
	OriginalFileID string    `json:"original_file_id"`
	SpaceID        string    `json:"space_id"`
	ChunkCount     int       `json:"chunk_count"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Chunk is the unit of embedding and retrieval.
type Chunk struct {
	DocID          string
	FileID         string
	OriginalFileID string
	SpaceID        string
	Index          int
	Text           string
	Embedding      []float32
}

// ChunkDocID builds the stable chunk identifier for a file and position.
func ChunkDocID(fileID string, index int) string {
	return fmt.Sprintf("doc_%s_%d", fileID, index)
}

// SearchResult is one candidate returned by a vector search.
// Distance is an L2 distance: lower is closer.
type SearchResult struct {
	DocID          string  `json:"doc_id"`
	Text           string  `json:"text"`
	FileID         string  `json:"file_id"`
	OriginalFileID string  `json:"original_file_id"`
	ChunkIndex     int     `json:"chunk_index"`
	Distance       float64 `json:"distance"`
	// Score is the ranking score after hybrid re-ranking. It equals
	// Distance when no re-ranking was applied.
	Score          float64 `json:"score"`
	KeywordMatches int     `json:"keyword_matches,omitempty"`
}

// Source cites one chunk that made it into an assembled context.
type Source struct {
	DocID          string  `json:"doc_id"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AssembledContext is the budget-constrained context block handed to the generator.
type AssembledContext struct {
	Text         string   `json:"context"`
	Sources      []Source `json:"sources"`
	TokensUsed   int      `json:"tokens_used"`
	BudgetTokens int      `json:"budget_tokens"`
}

// Empty reports whether no chunk fit the budget.
func (c AssembledContext) Empty() bool {
	return len(c.Sources) == 0
}

// Answer is the result of a question answered against a space.
type Answer struct {
	Query   string      `json:"query"`
	Text    string      `json:"answer"`
	Sources []Source    `json:"sources"`
	Debug   AnswerDebug `json:"debug"`
	// Grounded is false when no retrieved context was available and the
	// generator was not consulted.
	Grounded bool `json:"grounded"`
}

// AnswerDebug reports how the context for an answer was built.
type AnswerDebug struct {
	ContextTokens   int `json:"context_tokens"`
	ChunksUsed      int `json:"chunks_used"`
	ChunksAvailable int `json:"chunks_available"`
}

// IngestResult describes a successfully ingested file.
type IngestResult struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// SearchResponse is the result of a plain search against a space.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}
