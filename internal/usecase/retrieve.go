package usecase

import (
	"context"
	"strings"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// Expander rewrites a query before it is embedded.
type Expander interface {
	Expand(query string) string
}

// SearchOptions tunes a single search call.
type SearchOptions struct {
	// TopK overrides the configured result count when positive.
	TopK int
	// NoHybrid skips keyword re-ranking and returns plain semantic order.
	NoHybrid bool
}

// RetrieveUseCase handles search and retrieval operations.
type RetrieveUseCase struct {
	semantic port.Retriever
	hybrid   port.Retriever
	expander Expander
	topK     int
}

// NewRetrieveUseCase creates a new retrieve use case. hybrid and expander
// may be nil, which disables re-ranking and query expansion respectively.
func NewRetrieveUseCase(semantic, hybrid port.Retriever, expander Expander, topK int) *RetrieveUseCase {
	if topK <= 0 {
		topK = 3
	}
	return &RetrieveUseCase{
		semantic: semantic,
		hybrid:   hybrid,
		expander: expander,
		topK:     topK,
	}
}

// Search returns the ranked chunks of spaceID for query. No matches is an
// empty response, never an error.
func (u *RetrieveUseCase) Search(ctx context.Context, spaceID, query string, opts SearchOptions) (*domain.SearchResponse, error) {
	const op = "search"

	if strings.TrimSpace(spaceID) == "" || strings.TrimSpace(query) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, op, "both query and space id are required")
	}

	k := u.topK
	if opts.TopK > 0 {
		k = opts.TopK
	}

	expanded := query
	if u.expander != nil {
		expanded = u.expander.Expand(query)
		if expanded != query {
			logger.Debug("search: expanded query to %q", expanded)
		}
	}

	r := u.hybrid
	if r == nil || opts.NoHybrid {
		r = u.semantic
	}

	done := logger.Timed(op)
	results, err := r.Search(ctx, spaceID, expanded, k)
	done()
	if err != nil {
		return nil, domain.Classify(domain.ErrStorage, op, err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	return &domain.SearchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}
