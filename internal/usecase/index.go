package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// Invalidator is notified after every successful write so cached search
// results never outlive the data they were computed from.
type Invalidator interface {
	Invalidate()
}

// IndexUseCase embeds chunk texts and persists them as one atomic write.
type IndexUseCase struct {
	store       port.VectorStore
	embedder    port.Embedder
	invalidator Invalidator
	newID       func() string
}

// NewIndexUseCase creates a new index use case. invalidator may be nil.
func NewIndexUseCase(store port.VectorStore, embedder port.Embedder, invalidator Invalidator) *IndexUseCase {
	return &IndexUseCase{
		store:       store,
		embedder:    embedder,
		invalidator: invalidator,
		newID:       uuid.NewString,
	}
}

// Write assigns a new file id, embeds every chunk and persists one record
// per chunk with chunk_index equal to its position in chunks. All vectors
// are computed before the store is touched, so an embedding failure
// persists nothing and a storage failure rolls the whole file back.
func (u *IndexUseCase) Write(ctx context.Context, spaceID, originalFileID string, chunks []string) (string, error) {
	const op = "write"

	if strings.TrimSpace(spaceID) == "" {
		return "", domain.Errorf(domain.ErrInvalidInput, op, "space id is required")
	}
	if len(chunks) == 0 {
		return "", domain.Errorf(domain.ErrExtractionFailed, op, "no chunks to write for %q", originalFileID)
	}

	start := time.Now()
	vectors, err := u.embedder.Embed(ctx, chunks)
	if err != nil {
		return "", domain.Classify(domain.ErrEmbeddingUnavailable, op, err)
	}
	if len(vectors) != len(chunks) {
		return "", domain.Errorf(domain.ErrEmbeddingUnavailable, op, "got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	fileID := u.newID()
	records := make([]domain.Chunk, len(chunks))
	for i, text := range chunks {
		records[i] = domain.Chunk{
			DocID:          domain.ChunkDocID(fileID, i),
			FileID:         fileID,
			OriginalFileID: originalFileID,
			SpaceID:        spaceID,
			Index:          i,
			Text:           text,
			Embedding:      vectors[i],
		}
	}

	if err := u.store.PutChunks(ctx, records); err != nil {
		return "", domain.Classify(domain.ErrStorage, op, fmt.Errorf("failed to store chunks: %w", err))
	}

	if u.invalidator != nil {
		u.invalidator.Invalidate()
	}

	logger.Debug("write: %d chunks of %q into space %q as %s in %s",
		len(records), originalFileID, spaceID, fileID, time.Since(start).Round(time.Millisecond))
	return fileID, nil
}
