package retriever

import (
	"context"
	"errors"
	"math"
	"testing"

	"papertalk/internal/adapter/embedding"
	"papertalk/internal/adapter/memstore"
	"papertalk/internal/domain"
)

func TestRerankKeywordBoost(t *testing.T) {
	candidates := []domain.SearchResult{
		{DocID: "near", Text: "a passage about optimisation landscapes", Distance: 0.50},
		{DocID: "exact", Text: "Dropout regularization prevents overfitting", Distance: 0.62},
		{DocID: "far", Text: "unrelated text", Distance: 0.90},
	}

	ranked := Rerank("dropout regularization", candidates, 2, 0.1)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].DocID != "exact" {
		t.Errorf("expected keyword match to win, got %s", ranked[0].DocID)
	}
	if ranked[0].KeywordMatches != 2 {
		t.Errorf("expected 2 keyword matches, got %d", ranked[0].KeywordMatches)
	}
	if math.Abs(ranked[0].Score-0.42) > 1e-9 {
		t.Errorf("expected adjusted score 0.42, got %f", ranked[0].Score)
	}
	if ranked[0].Distance != 0.62 {
		t.Errorf("distance must be preserved, got %f", ranked[0].Distance)
	}
	if ranked[1].DocID != "near" {
		t.Errorf("expected near second, got %s", ranked[1].DocID)
	}
	if candidates[1].Score != 0 {
		t.Error("input candidates must not be modified")
	}
}

func TestRerankDistinctTerms(t *testing.T) {
	candidates := []domain.SearchResult{{DocID: "a", Text: "graph graph graph", Distance: 1}}

	ranked := Rerank("Graph graph GRAPH", candidates, 5, 0.1)

	if ranked[0].KeywordMatches != 1 {
		t.Errorf("repeated query terms must count once, got %d", ranked[0].KeywordMatches)
	}
}

func TestRerankSubstringMatch(t *testing.T) {
	if got := KeywordMatches(QueryTerms("learn"), "Deep LEARNING models"); got != 1 {
		t.Errorf("expected substring match, got %d", got)
	}
}

func TestRerankStableOnTies(t *testing.T) {
	candidates := []domain.SearchResult{
		{DocID: "first", Text: "x", Distance: 0.3},
		{DocID: "second", Text: "y", Distance: 0.3},
		{DocID: "third", Text: "z", Distance: 0.3},
	}

	ranked := Rerank("nothing matches", candidates, 3, 0.1)

	for i, want := range []string{"first", "second", "third"} {
		if ranked[i].DocID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].DocID)
		}
	}
}

func TestRerankNoBoost(t *testing.T) {
	candidates := []domain.SearchResult{
		{DocID: "a", Text: "alpha", Distance: 0.1},
		{DocID: "b", Text: "beta beta", Distance: 0.2},
	}

	ranked := Rerank("beta", candidates, 2, 0)
	if ranked[0].DocID != "a" {
		t.Errorf("zero boost must keep semantic order, got %s first", ranked[0].DocID)
	}
}

func TestRerankEmpty(t *testing.T) {
	ranked := Rerank("anything", nil, 3, 0.1)
	if len(ranked) != 0 {
		t.Errorf("expected no results, got %v", ranked)
	}
}

type stubRetriever struct {
	gotK    int
	results []domain.SearchResult
	err     error
}

func (s *stubRetriever) Search(ctx context.Context, spaceID, query string, k int) ([]domain.SearchResult, error) {
	s.gotK = k
	return s.results, s.err
}

func TestHybridRetrieverOverFetches(t *testing.T) {
	stub := &stubRetriever{results: []domain.SearchResult{
		{DocID: "a", Text: "alpha", Distance: 0.1},
		{DocID: "b", Text: "beta", Distance: 0.15},
		{DocID: "c", Text: "gamma", Distance: 0.3},
	}}
	h := NewHybridRetriever(stub, 2, 0.1)

	results, err := h.Search(context.Background(), "s", "beta", 1)
	if err != nil {
		t.Fatal(err)
	}
	if stub.gotK != 2 {
		t.Errorf("expected over-fetch of 2, got %d", stub.gotK)
	}
	if len(results) != 1 || results[0].DocID != "b" {
		t.Errorf("expected b after re-ranking, got %+v", results)
	}
}

func TestHybridRetrieverPropagatesErrors(t *testing.T) {
	stub := &stubRetriever{err: domain.E(domain.ErrStorage, "search", errors.New("closed"))}
	h := NewHybridRetriever(stub, 2, 0.1)

	if _, err := h.Search(context.Background(), "s", "q", 3); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestSemanticRetriever(t *testing.T) {
	ctx := context.Background()
	embedder := embedding.NewHashEmbedder(64)
	store := memstore.NewMemoryStore(64)

	texts := []string{
		"convolutional networks for image classification",
		"recurrent networks model sequences over time",
		"bayesian inference with markov chain monte carlo",
	}
	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	chunks := make([]domain.Chunk, len(texts))
	for i := range texts {
		chunks[i] = domain.Chunk{
			DocID: domain.ChunkDocID("f", i), FileID: "f", OriginalFileID: "f.txt",
			SpaceID: "demo", Index: i, Text: texts[i], Embedding: vecs[i],
		}
	}
	if err := store.PutChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	r := NewSemanticRetriever(store, embedder)
	results, err := r.Search(ctx, "demo", texts[1], 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[0].DocID != "doc_f_1" {
		t.Errorf("expected exact text to rank first, got %+v", results)
	}

	empty, err := r.Search(ctx, "nowhere", "anything", 3)
	if err != nil {
		t.Fatalf("expected no error for empty space, got %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("dial tcp: connection refused")
}
func (failingEmbedder) Dimension() int    { return 4 }
func (failingEmbedder) ModelName() string { return "down" }

func TestSemanticRetrieverEmbeddingUnavailable(t *testing.T) {
	r := NewSemanticRetriever(memstore.NewMemoryStore(4), failingEmbedder{})

	_, err := r.Search(context.Background(), "demo", "q", 3)
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}
