package retriever

import (
	"context"

	"papertalk/internal/adapter/embedding"
	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// SemanticRetriever embeds the query and asks the vector store for the
// nearest chunks of one space.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
}

func NewSemanticRetriever(vectorStore port.VectorStore, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
	}
}

// Search returns up to k chunks ordered by ascending L2 distance. An empty
// space yields an empty slice and no error.
func (r *SemanticRetriever) Search(ctx context.Context, spaceID, query string, k int) ([]domain.SearchResult, error) {
	vec, err := embedding.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, domain.Classify(domain.ErrEmbeddingUnavailable, "search", err)
	}

	results, err := r.vectorStore.Search(ctx, spaceID, vec, k)
	if err != nil {
		return nil, domain.Classify(domain.ErrStorage, "search", err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	logger.Debug("semantic: %d candidates from space %q (k=%d)", len(results), spaceID, k)
	return results, nil
}
