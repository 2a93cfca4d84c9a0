package port

import (
	"context"

	"papertalk/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists chunk records and answers nearest-neighbour queries
// restricted to one space.
type VectorStore interface {
	// PutChunks persists all chunks in one transaction, creating any missing
	// space with a placeholder name. Either every chunk is stored or none is.
	PutChunks(ctx context.Context, chunks []domain.Chunk) error

	// Search returns the k chunks of spaceID closest to query by L2
	// distance, closest first. An empty space yields an empty result.
	Search(ctx context.Context, spaceID string, query []float32, k int) ([]domain.SearchResult, error)

	// EnsureSpace creates the space if absent. Existing spaces are left untouched.
	EnsureSpace(ctx context.Context, space domain.Space) error

	// RenameSpace updates the display name of an existing space.
	RenameSpace(ctx context.Context, id, name string) error

	ListSpaces(ctx context.Context) ([]domain.Space, error)

	// ListDocuments returns the distinct files ingested into a space.
	ListDocuments(ctx context.Context, spaceID string) ([]domain.Document, error)

	Close() error
}
