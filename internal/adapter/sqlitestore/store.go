package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"papertalk/internal/adapter/sqlitestore/migrations"
	"papertalk/internal/adapter/store"
	"papertalk/internal/domain"
)

// Store is a SQLite-backed vector store.
type Store struct {
	db        *sql.DB
	dimension int
	now       func() time.Time
}

// NewStore opens the database at path, runs pending migrations and checks
// the recorded embedding dimension.
func NewStore(path string, dimension int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dimension: dimension, now: time.Now}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.checkDimension(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_init.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) checkDimension() error {
	var value string
	err := s.db.QueryRow("SELECT value FROM store_meta WHERE key = 'dimension'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec("INSERT INTO store_meta (key, value) VALUES ('dimension', ?)", strconv.Itoa(s.dimension))
		if err != nil {
			return fmt.Errorf("recording dimension: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading dimension: %w", err)
	}

	stored, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parsing stored dimension %q: %w", value, err)
	}
	if stored != s.dimension {
		return domain.Errorf(domain.ErrInvalidConfiguration, "open store",
			"database holds %d-dimensional vectors, embedder produces %d", stored, s.dimension)
	}
	return nil
}

// PutChunks stores all chunks in a single transaction.
func (s *Store) PutChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if err := store.CheckDimension(c.Embedding, s.dimension); err != nil {
			return fmt.Errorf("chunk %s: %w", c.DocID, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO spaces (id, name, created_at) VALUES (?, ?, ?)",
			c.SpaceID, c.SpaceID, now,
		); err != nil {
			return fmt.Errorf("ensuring space %s: %w", c.SpaceID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO chunks
				(space_id, doc_id, file_id, original_file_id, chunk_index, text, embedding, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.SpaceID, c.DocID, c.FileID, c.OriginalFileID, c.Index, c.Text, store.EncodeVector(c.Embedding), now,
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.DocID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// Search ranks the chunks of one space by L2 distance to query.
func (s *Store) Search(ctx context.Context, spaceID string, query []float32, k int) ([]domain.SearchResult, error) {
	if err := store.CheckDimension(query, s.dimension); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	results := []domain.SearchResult{}
	if k <= 0 {
		return results, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, file_id, original_file_id, chunk_index, text, embedding
		FROM chunks WHERE space_id = ?`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r    domain.SearchResult
			blob []byte
		)
		if err := rows.Scan(&r.DocID, &r.FileID, &r.OriginalFileID, &r.ChunkIndex, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		vec, err := store.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.DocID, err)
		}
		r.Distance = store.L2Distance(query, vec)
		r.Score = r.Distance
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return store.TopK(results, k), nil
}

// EnsureSpace creates the space if it does not exist.
func (s *Store) EnsureSpace(ctx context.Context, space domain.Space) error {
	name := space.Name
	if name == "" {
		name = space.ID
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO spaces (id, name, created_at) VALUES (?, ?, ?)",
		space.ID, name, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("ensuring space %s: %w", space.ID, err)
	}
	return nil
}

func (s *Store) RenameSpace(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE spaces SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("renaming space %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("renaming space %s: %w", id, err)
	}
	if n == 0 {
		return domain.Errorf(domain.ErrNotFound, "rename space", "space %q", id)
	}
	return nil
}

func (s *Store) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM spaces ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying spaces: %w", err)
	}
	defer rows.Close()

	spaces := []domain.Space{}
	for rows.Next() {
		var (
			sp      domain.Space
			created int64
		)
		if err := rows.Scan(&sp.ID, &sp.Name, &created); err != nil {
			return nil, fmt.Errorf("scanning space: %w", err)
		}
		sp.CreatedAt = time.Unix(0, created).UTC()
		spaces = append(spaces, sp)
	}
	return spaces, rows.Err()
}

func (s *Store) ListDocuments(ctx context.Context, spaceID string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, MIN(original_file_id), COUNT(*), MIN(created_at)
		FROM chunks WHERE space_id = ?
		GROUP BY file_id
		ORDER BY MIN(created_at), file_id`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var (
			d       domain.Document
			created int64
		)
		if err := rows.Scan(&d.FileID, &d.OriginalFileID, &d.ChunkCount, &created); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.SpaceID = spaceID
		d.CreatedAt = time.Unix(0, created).UTC()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
