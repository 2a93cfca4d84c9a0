// Package pgstore provides a vector store on PostgreSQL with the pgvector
// extension. Distance ordering is done by the database with the <-> (L2)
// operator.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"papertalk/internal/adapter/store"
	"papertalk/internal/domain"
)

// Store is a pgvector-backed vector store.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewStore connects to dsn, enables the vector extension and creates the
// schema for vectors of the given dimension.
func NewStore(ctx context.Context, dsn string, dimension int) (*Store, error) {
	// The extension must exist before pooled connections register its types.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("enabling vector extension: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	s := &Store{pool: pool, dimension: dimension}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spaces (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			space_id         TEXT NOT NULL REFERENCES spaces(id),
			doc_id           TEXT NOT NULL,
			file_id          TEXT NOT NULL,
			original_file_id TEXT NOT NULL,
			chunk_index      INTEGER NOT NULL,
			text             TEXT NOT NULL,
			embedding        vector(%d) NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (space_id, doc_id)
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS idx_chunks_space_file ON chunks (space_id, file_id)`,
		`CREATE TABLE IF NOT EXISTS store_meta (
			key   TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	var stored int
	err := s.pool.QueryRow(ctx, "SELECT value FROM store_meta WHERE key = 'dimension'").Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = s.pool.Exec(ctx, "INSERT INTO store_meta (key, value) VALUES ('dimension', $1) ON CONFLICT DO NOTHING", s.dimension)
		return err
	}
	if err != nil {
		return fmt.Errorf("reading dimension: %w", err)
	}
	if stored != s.dimension {
		return domain.Errorf(domain.ErrInvalidConfiguration, "open store",
			"database holds %d-dimensional vectors, embedder produces %d", stored, s.dimension)
	}
	return nil
}

// PutChunks stores all chunks in one transaction.
func (s *Store) PutChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if err := store.CheckDimension(c.Embedding, s.dimension); err != nil {
			return fmt.Errorf("chunk %s: %w", c.DocID, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		if _, err := tx.Exec(ctx,
			"INSERT INTO spaces (id, name) VALUES ($1, $1) ON CONFLICT (id) DO NOTHING",
			c.SpaceID,
		); err != nil {
			return fmt.Errorf("ensuring space %s: %w", c.SpaceID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO chunks (space_id, doc_id, file_id, original_file_id, chunk_index, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (space_id, doc_id) DO UPDATE SET
				file_id = EXCLUDED.file_id,
				original_file_id = EXCLUDED.original_file_id,
				chunk_index = EXCLUDED.chunk_index,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding`,
			c.SpaceID, c.DocID, c.FileID, c.OriginalFileID, c.Index, c.Text, pgvector.NewVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.DocID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// Search returns the k chunks of a space nearest to query by L2 distance.
func (s *Store) Search(ctx context.Context, spaceID string, query []float32, k int) ([]domain.SearchResult, error) {
	if err := store.CheckDimension(query, s.dimension); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	results := []domain.SearchResult{}
	if k <= 0 {
		return results, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT doc_id, file_id, original_file_id, chunk_index, text, embedding <-> $2 AS distance
		FROM chunks
		WHERE space_id = $1
		ORDER BY distance, file_id, chunk_index
		LIMIT $3`,
		spaceID, pgvector.NewVector(query), k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.DocID, &r.FileID, &r.OriginalFileID, &r.ChunkIndex, &r.Text, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		r.Score = r.Distance
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return results, nil
}

func (s *Store) EnsureSpace(ctx context.Context, space domain.Space) error {
	name := space.Name
	if name == "" {
		name = space.ID
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO spaces (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
		space.ID, name,
	)
	if err != nil {
		return fmt.Errorf("ensuring space %s: %w", space.ID, err)
	}
	return nil
}

func (s *Store) RenameSpace(ctx context.Context, id, name string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE spaces SET name = $2 WHERE id = $1", id, name)
	if err != nil {
		return fmt.Errorf("renaming space %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "rename space", "space %q", id)
	}
	return nil
}

func (s *Store) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, created_at FROM spaces ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying spaces: %w", err)
	}
	defer rows.Close()

	spaces := []domain.Space{}
	for rows.Next() {
		var sp domain.Space
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning space: %w", err)
		}
		sp.CreatedAt = sp.CreatedAt.UTC()
		spaces = append(spaces, sp)
	}
	return spaces, rows.Err()
}

func (s *Store) ListDocuments(ctx context.Context, spaceID string) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_id, MIN(original_file_id), COUNT(*), MIN(created_at)
		FROM chunks WHERE space_id = $1
		GROUP BY file_id
		ORDER BY MIN(created_at), file_id`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var (
			d     domain.Document
			count int64
		)
		if err := rows.Scan(&d.FileID, &d.OriginalFileID, &count, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.SpaceID = spaceID
		d.ChunkCount = int(count)
		d.CreatedAt = d.CreatedAt.UTC()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
