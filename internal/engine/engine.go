// Package engine assembles the retrieval pipeline from configuration and
// exposes the operations an outer surface (CLI or HTTP) calls.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"papertalk/config"
	"papertalk/internal/adapter/analyzer"
	"papertalk/internal/adapter/cache"
	"papertalk/internal/adapter/chunker"
	"papertalk/internal/adapter/embedding"
	"papertalk/internal/adapter/extract"
	"papertalk/internal/adapter/fs"
	"papertalk/internal/adapter/llm"
	"papertalk/internal/adapter/memstore"
	"papertalk/internal/adapter/pgstore"
	"papertalk/internal/adapter/retriever"
	"papertalk/internal/adapter/sqlitestore"
	"papertalk/internal/adapter/store"
	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
	"papertalk/internal/usecase"
)

// Engine owns the store, model clients and use cases of one process.
type Engine struct {
	cfg      *config.Config
	store    port.VectorStore
	cache    *cache.QueryCache
	walker   *fs.Walker
	ingest   *usecase.IngestUseCase
	retrieve *usecase.RetrieveUseCase
	ask      *usecase.AskUseCase
	closers  []io.Closer
}

type options struct {
	store     port.VectorStore
	embedder  port.Embedder
	generator port.Generator
	extractor port.Extractor
	noGen     bool
}

// Option overrides a component that New would otherwise build from config.
type Option func(*options)

// WithStore uses st instead of opening the configured backend. The engine
// takes ownership and closes it.
func WithStore(st port.VectorStore) Option {
	return func(o *options) { o.store = st }
}

// WithEmbedder uses e instead of the configured embedding provider.
func WithEmbedder(e port.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithGenerator uses g instead of the configured generation provider.
func WithGenerator(g port.Generator) Option {
	return func(o *options) { o.generator = g; o.noGen = g == nil }
}

// WithExtractor uses x instead of the default text and PDF extractor.
func WithExtractor(x port.Extractor) Option {
	return func(o *options) { o.extractor = x }
}

// New validates cfg and builds every component. dir is the project
// directory holding the .papertalk data dir for file-based backends.
func New(ctx context.Context, cfg *config.Config, dir string, opts ...Option) (*Engine, error) {
	const op = "engine"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	emb := o.embedder
	if emb == nil {
		var err error
		if emb, err = newEmbedder(ctx, cfg.Embedding); err != nil {
			return nil, domain.Classify(domain.ErrInvalidConfiguration, op, err)
		}
		e.track(emb)
	}
	if emb.Dimension() != cfg.Embedding.Dimension {
		return nil, domain.Errorf(domain.ErrInvalidConfiguration, op,
			"embedder %s produces %d dimensions, config says %d", emb.ModelName(), emb.Dimension(), cfg.Embedding.Dimension)
	}
	pool := embedding.NewPool(emb, embedding.PoolConfig{
		BatchSize:         cfg.Embedding.BatchSize,
		Workers:           cfg.Embedding.Workers,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Timeout:           cfg.Embedding.Timeout,
	})

	gen := o.generator
	if gen == nil && !o.noGen && cfg.Generation.Provider != "none" {
		lazy := newLazyGenerator(cfg.Generation)
		e.track(lazy)
		gen = lazy
	}

	e.store = o.store
	if e.store == nil {
		var err error
		if e.store, err = openStore(ctx, cfg, dir, emb.ModelName()); err != nil {
			return nil, domain.Classify(domain.ErrStorage, op, err)
		}
	}

	tokenizer := analyzer.NewTokenizer()
	chk, err := chunker.NewWindowChunker(cfg.Chunk.WindowTokens, cfg.Chunk.OverlapTokens, tokenizer)
	if err != nil {
		return nil, err
	}

	var semantic, hybrid port.Retriever
	semantic = retriever.NewSemanticRetriever(e.store, pool)
	if cfg.Retrieve.HybridEnabled {
		hybrid = retriever.NewHybridRetriever(semantic, cfg.Retrieve.CandidateMultiplier, cfg.Retrieve.KeywordBoost)
	}

	var invalidator usecase.Invalidator
	if cfg.Retrieve.CacheSize > 0 {
		e.cache = cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
		invalidator = e.cache
		semantic = cache.NewCachedRetriever(semantic, e.cache, "semantic")
		if hybrid != nil {
			hybrid = cache.NewCachedRetriever(hybrid, e.cache, "hybrid")
		}
	}

	var expander usecase.Expander
	if cfg.Retrieve.ExpandQuery {
		expander = retriever.NewQueryExpander(cfg.Retrieve.Synonyms)
	}

	extractor := o.extractor
	if extractor == nil {
		extractor = extract.New(nil)
	}

	index := usecase.NewIndexUseCase(e.store, pool, invalidator)
	e.ingest = usecase.NewIngestUseCase(extractor, chk, index, cfg.Chunk.MaxFileBytes)
	e.retrieve = usecase.NewRetrieveUseCase(semantic, hybrid, expander, cfg.Retrieve.TopK)
	e.ask = usecase.NewAskUseCase(e.retrieve, usecase.NewContextAssembler(tokenizer), gen, usecase.AskConfig{
		TokenBudget: cfg.Context.TokenBudget,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     cfg.Generation.Timeout,
	})
	e.walker = fs.NewWalker(cfg.Chunk.Includes, cfg.Chunk.Excludes)

	logger.Debug("engine: store=%s embedder=%s generator=%s hybrid=%v cache=%d",
		cfg.Storage.Backend, emb.ModelName(), modelName(gen), hybrid != nil, cfg.Retrieve.CacheSize)
	ok = true
	return e, nil
}

func (e *Engine) track(v any) {
	if c, ok := v.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}
}

func modelName(g port.Generator) string {
	if g == nil {
		return "none"
	}
	return g.ModelName()
}

func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "gemini":
		return embedding.NewGeminiEmbedder(ctx, os.Getenv(cfg.APIKeyEnv), cfg.Model, cfg.Dimension)
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "hash":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

func newGenerator(ctx context.Context, cfg config.GenerationConfig) (port.Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return llm.NewGeminiGenerator(ctx, os.Getenv(cfg.APIKeyEnv), cfg.Model)
	case "openai":
		return llm.NewOpenAIGenerator(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
	case "ollama":
		return llm.NewOllamaGenerator(cfg.Model, cfg.BaseURL), nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
}

func openStore(ctx context.Context, cfg *config.Config, dir, model string) (port.VectorStore, error) {
	dim := cfg.Embedding.Dimension
	switch cfg.Storage.Backend {
	case "bolt":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, err
		}
		return store.NewBoltStore(cfg.IndexDBPath(dir), model, dim)
	case "sqlite":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, err
		}
		return sqlitestore.NewStore(cfg.IndexDBPath(dir), dim)
	case "postgres":
		dsn := os.Getenv(cfg.Storage.DSNEnv)
		if dsn == "" {
			return nil, domain.Errorf(domain.ErrInvalidConfiguration, "open store", "environment variable %s is not set", cfg.Storage.DSNEnv)
		}
		return pgstore.NewStore(ctx, dsn, dim)
	case "memory":
		return memstore.NewMemoryStore(dim), nil
	}
	return nil, domain.Errorf(domain.ErrInvalidConfiguration, "open store", "unknown storage backend %q", cfg.Storage.Backend)
}

// Walker returns the directory walker configured with the ingest globs.
func (e *Engine) Walker() *fs.Walker {
	return e.walker
}

// Ingest stores one uploaded file in spaceID.
func (e *Engine) Ingest(ctx context.Context, spaceID, filename string, data []byte) (*domain.IngestResult, error) {
	return e.ingest.Ingest(ctx, spaceID, filename, data)
}

// IngestFile reads path from disk and ingests it under its base name.
func (e *Engine) IngestFile(ctx context.Context, spaceID, path string) (*domain.IngestResult, error) {
	const op = "ingest"

	name := filepath.Base(path)
	if !extract.Supported(name) {
		return nil, domain.Errorf(domain.ErrUnsupportedFileType, op, "%s", name)
	}
	data, err := fs.ReadFile(path, e.cfg.Chunk.MaxFileBytes)
	if err != nil {
		var tooLarge *fs.TooLargeError
		if errors.As(err, &tooLarge) {
			return nil, domain.Errorf(domain.ErrFileTooLarge, op, "%s is %d bytes, limit is %d", name, tooLarge.Size, tooLarge.Limit)
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.E(domain.ErrNotFound, op, err)
		}
		return nil, domain.E(domain.ErrExtractionFailed, op, err)
	}
	return e.ingest.Ingest(ctx, spaceID, name, data)
}

// Search returns the ranked chunks of spaceID for query.
func (e *Engine) Search(ctx context.Context, spaceID, query string, opts usecase.SearchOptions) (*domain.SearchResponse, error) {
	return e.retrieve.Search(ctx, spaceID, query, opts)
}

// Ask answers query from the chunks of spaceID.
func (e *Engine) Ask(ctx context.Context, spaceID, query string) (*domain.Answer, error) {
	return e.ask.Ask(ctx, spaceID, query)
}

// ListSpaces returns every known space, oldest first.
func (e *Engine) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	spaces, err := e.store.ListSpaces(ctx)
	if err != nil {
		return nil, domain.Classify(domain.ErrStorage, "list spaces", err)
	}
	if spaces == nil {
		spaces = []domain.Space{}
	}
	return spaces, nil
}

// CreateSpace creates a space if it does not exist yet. An empty name
// uses the id as placeholder.
func (e *Engine) CreateSpace(ctx context.Context, id, name string) error {
	const op = "create space"
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Errorf(domain.ErrInvalidInput, op, "space id is required")
	}
	if err := e.store.EnsureSpace(ctx, domain.Space{ID: id, Name: name}); err != nil {
		return domain.Classify(domain.ErrStorage, op, err)
	}
	return nil
}

// RenameSpace changes the display name of an existing space.
func (e *Engine) RenameSpace(ctx context.Context, id, name string) error {
	const op = "rename space"
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return domain.Errorf(domain.ErrInvalidInput, op, "space id and name are required")
	}
	if err := e.store.RenameSpace(ctx, id, name); err != nil {
		return domain.Classify(domain.ErrStorage, op, err)
	}
	return nil
}

// ListDocuments returns the files ingested into spaceID.
func (e *Engine) ListDocuments(ctx context.Context, spaceID string) ([]domain.Document, error) {
	docs, err := e.store.ListDocuments(ctx, spaceID)
	if err != nil {
		return nil, domain.Classify(domain.ErrStorage, "list documents", err)
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return docs, nil
}

// Close releases the store and any model clients.
func (e *Engine) Close() error {
	var errs []error
	if e.store != nil {
		errs = append(errs, e.store.Close())
		e.store = nil
	}
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}
