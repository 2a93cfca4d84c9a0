package usecase

import (
	"context"
	"errors"
	"testing"

	"papertalk/internal/adapter/analyzer"
	"papertalk/internal/adapter/chunker"
	"papertalk/internal/adapter/embedding"
	"papertalk/internal/adapter/extract"
	"papertalk/internal/adapter/memstore"
	"papertalk/internal/adapter/retriever"
	"papertalk/internal/domain"
	"papertalk/internal/port"
)

const testDim = 64

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}
func (failingEmbedder) Dimension() int    { return testDim }
func (failingEmbedder) ModelName() string { return "failing" }

type failingStore struct {
	*memstore.MemoryStore
}

func (failingStore) PutChunks(ctx context.Context, chunks []domain.Chunk) error {
	return errors.New("disk full")
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, opts port.GenerateOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

func (g *fakeGenerator) ModelName() string { return "fake" }

type pipeline struct {
	store    *memstore.MemoryStore
	index    *IndexUseCase
	ingest   *IngestUseCase
	retrieve *RetrieveUseCase
	ask      *AskUseCase
	gen      *fakeGenerator
}

// newPipeline wires the whole query and ingest path on in-memory parts.
// Chunks are 4 words wide with 1 word of overlap.
func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	tokenizer := analyzer.NewTokenizer()
	chk, err := chunker.NewWindowChunker(4, 1, tokenizer)
	if err != nil {
		t.Fatal(err)
	}
	st := memstore.NewMemoryStore(testDim)
	emb := embedding.NewHashEmbedder(testDim)

	index := NewIndexUseCase(st, emb, nil)
	semantic := retriever.NewSemanticRetriever(st, emb)
	hybrid := retriever.NewHybridRetriever(semantic, 2, retriever.DefaultBoostWeight)
	retrieve := NewRetrieveUseCase(semantic, hybrid, nil, 3)
	gen := &fakeGenerator{text: "an answer"}

	return &pipeline{
		store:    st,
		index:    index,
		ingest:   NewIngestUseCase(extract.New(nil), chk, index, 1<<20),
		retrieve: retrieve,
		ask:      NewAskUseCase(retrieve, NewContextAssembler(tokenizer), gen, AskConfig{TokenBudget: 2500}),
		gen:      gen,
	}
}
