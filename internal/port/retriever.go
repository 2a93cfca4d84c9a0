package port

import (
	"context"

	"papertalk/internal/domain"
)

// Retriever searches one space for chunks relevant to a query.
type Retriever interface {
	Search(ctx context.Context, spaceID, query string, k int) ([]domain.SearchResult, error)
}
