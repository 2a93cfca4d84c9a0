package retriever

import (
	"context"
	"sort"
	"strings"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// DefaultBoostWeight is the distance credited per matching query term.
const DefaultBoostWeight = 0.1

// HybridRetriever over-fetches semantic candidates and re-ranks them with a
// keyword bonus.
type HybridRetriever struct {
	semantic   port.Retriever
	multiplier int
	boost      float64
}

// NewHybridRetriever wraps semantic. multiplier is the over-fetch factor
// (candidates = multiplier*k) and boost the per-term keyword credit.
func NewHybridRetriever(semantic port.Retriever, multiplier int, boost float64) *HybridRetriever {
	if multiplier < 1 {
		multiplier = 2
	}
	if boost < 0 {
		boost = DefaultBoostWeight
	}
	return &HybridRetriever{
		semantic:   semantic,
		multiplier: multiplier,
		boost:      boost,
	}
}

// Search fetches multiplier*k semantic candidates and returns the k best
// after keyword re-ranking.
func (r *HybridRetriever) Search(ctx context.Context, spaceID, query string, k int) ([]domain.SearchResult, error) {
	candidates, err := r.semantic.Search(ctx, spaceID, query, k*r.multiplier)
	if err != nil {
		return nil, err
	}
	ranked := Rerank(query, candidates, k, r.boost)
	logger.Debug("hybrid: kept %d of %d candidates", len(ranked), len(candidates))
	return ranked, nil
}

// QueryTerms returns the distinct lower-cased whitespace-separated terms of query.
func QueryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// KeywordMatches counts the terms that occur as substrings of text,
// ignoring case.
func KeywordMatches(terms []string, text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			n++
		}
	}
	return n
}

// Rerank scores each candidate as distance - matches*boost, sorts
// ascending (stable, so equal scores keep their semantic order) and
// truncates to topK. The input slice is not modified.
func Rerank(query string, candidates []domain.SearchResult, topK int, boost float64) []domain.SearchResult {
	terms := QueryTerms(query)

	ranked := make([]domain.SearchResult, len(candidates))
	for i, c := range candidates {
		c.KeywordMatches = KeywordMatches(terms, c.Text)
		c.Score = c.Distance - float64(c.KeywordMatches)*boost
		ranked[i] = c
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})

	if topK >= 0 && topK < len(ranked) {
		ranked = ranked[:topK]
	}
	return ranked
}
