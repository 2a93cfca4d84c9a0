package usecase

import (
	"context"
	"strings"

	"papertalk/internal/adapter/extract"
	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// IngestUseCase turns an uploaded file into stored chunks.
type IngestUseCase struct {
	extractor port.Extractor
	chunker   port.Chunker
	index     *IndexUseCase
	maxBytes  int64
}

// NewIngestUseCase creates a new ingest use case. maxBytes <= 0 disables
// the size limit.
func NewIngestUseCase(extractor port.Extractor, chunker port.Chunker, index *IndexUseCase, maxBytes int64) *IngestUseCase {
	return &IngestUseCase{
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		maxBytes:  maxBytes,
	}
}

// Ingest validates, extracts, chunks and writes one file. Checks run in a
// fixed order: space, extension, size, extraction, then chunking.
func (u *IngestUseCase) Ingest(ctx context.Context, spaceID, filename string, data []byte) (*domain.IngestResult, error) {
	const op = "ingest"
	logger.Section("ingest " + filename)

	if strings.TrimSpace(spaceID) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, op, "space id is required")
	}
	if !extract.Supported(filename) {
		return nil, domain.Errorf(domain.ErrUnsupportedFileType, op, "%s", filename)
	}
	if u.maxBytes > 0 && int64(len(data)) > u.maxBytes {
		return nil, domain.Errorf(domain.ErrFileTooLarge, op, "%s is %d bytes, limit is %d", filename, len(data), u.maxBytes)
	}

	done := logger.Timed("extract " + filename)
	text, err := u.extractor.Extract(ctx, filename, data)
	done()
	if err != nil {
		return nil, domain.Classify(domain.ErrExtractionFailed, op, err)
	}

	chunks, err := u.chunker.Chunk(text)
	if err != nil {
		return nil, domain.Classify(domain.ErrInvalidConfiguration, op, err)
	}
	if len(chunks) == 0 {
		return nil, domain.Errorf(domain.ErrExtractionFailed, op, "%s produced no chunks", filename)
	}
	logger.Debug("ingest: %s split into %d chunks", filename, len(chunks))

	fileID, err := u.index.Write(ctx, spaceID, filename, chunks)
	if err != nil {
		return nil, err
	}

	return &domain.IngestResult{
		FileID:     fileID,
		Filename:   filename,
		ChunkCount: len(chunks),
	}, nil
}
