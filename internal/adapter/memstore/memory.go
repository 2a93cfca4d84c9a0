package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertalk/internal/adapter/store"
	"papertalk/internal/domain"
)

// MemoryStore is a process-local vector store. It is used for tests and
// for one-shot runs where nothing needs to persist.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	spaces    map[string]domain.Space
	chunks    map[string]map[string]memChunk // space id -> doc id -> chunk
}

type memChunk struct {
	chunk     domain.Chunk
	createdAt time.Time
}

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		spaces:    make(map[string]domain.Space),
		chunks:    make(map[string]map[string]memChunk),
	}
}

func (s *MemoryStore) PutChunks(ctx context.Context, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := store.CheckDimension(c.Embedding, s.dimension); err != nil {
			return fmt.Errorf("chunk %s: %w", c.DocID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, c := range chunks {
		s.ensureSpace(domain.Space{ID: c.SpaceID}, now)
		if s.chunks[c.SpaceID] == nil {
			s.chunks[c.SpaceID] = make(map[string]memChunk)
		}
		c.Embedding = append([]float32(nil), c.Embedding...)
		s.chunks[c.SpaceID][c.DocID] = memChunk{chunk: c, createdAt: now}
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, spaceID string, query []float32, k int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.CheckDimension(query, s.dimension); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.SearchResult, 0, len(s.chunks[spaceID]))
	if k <= 0 {
		return results, nil
	}
	for docID, mc := range s.chunks[spaceID] {
		dist := store.L2Distance(query, mc.chunk.Embedding)
		results = append(results, domain.SearchResult{
			DocID:          docID,
			Text:           mc.chunk.Text,
			FileID:         mc.chunk.FileID,
			OriginalFileID: mc.chunk.OriginalFileID,
			ChunkIndex:     mc.chunk.Index,
			Distance:       dist,
			Score:          dist,
		})
	}
	return store.TopK(results, k), nil
}

func (s *MemoryStore) EnsureSpace(ctx context.Context, space domain.Space) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureSpace(space, time.Now().UTC())
	return nil
}

func (s *MemoryStore) ensureSpace(space domain.Space, now time.Time) {
	if _, ok := s.spaces[space.ID]; ok {
		return
	}
	if space.Name == "" {
		space.Name = space.ID
	}
	space.CreatedAt = now
	s.spaces[space.ID] = space
}

func (s *MemoryStore) RenameSpace(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	space, ok := s.spaces[id]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "rename space", "space %q", id)
	}
	space.Name = name
	s.spaces[id] = space
	return nil
}

func (s *MemoryStore) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spaces := make([]domain.Space, 0, len(s.spaces))
	for _, space := range s.spaces {
		spaces = append(spaces, space)
	}
	store.SortSpaces(spaces)
	return spaces, nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, spaceID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byFile := make(map[string]*domain.Document)
	for _, mc := range s.chunks[spaceID] {
		doc, ok := byFile[mc.chunk.FileID]
		if !ok {
			doc = &domain.Document{
				FileID:         mc.chunk.FileID,
				OriginalFileID: mc.chunk.OriginalFileID,
				SpaceID:        spaceID,
				CreatedAt:      mc.createdAt,
			}
			byFile[mc.chunk.FileID] = doc
		}
		doc.ChunkCount++
	}

	docs := make([]domain.Document, 0, len(byFile))
	for _, doc := range byFile {
		docs = append(docs, *doc)
	}
	store.SortDocuments(docs)
	return docs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
