package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"papertalk/internal/domain"
)

var (
	bucketSpaces  = []byte("spaces")
	bucketChunks  = []byte("chunks")  // space id -> doc id -> chunkRecord
	bucketVectors = []byte("vectors") // space id -> doc id -> encoded vector
	bucketMeta    = []byte("meta")
)

// BoltStore is a vector store kept in a single bbolt file. Chunks and
// vectors live in per-space nested buckets so a search only touches the
// space it is filtered to. Search is brute force.
type BoltStore struct {
	db        *bbolt.DB
	dimension int
	now       func() time.Time
}

type spaceRecord struct {
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

type chunkRecord struct {
	FileID         string `json:"file_id"`
	OriginalFileID string `json:"original_file_id"`
	ChunkIndex     int    `json:"chunk_index"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"created_at"`
}

// NewBoltStore opens (or creates) the database at path and checks that it
// holds vectors of the given embedding model and dimension.
func NewBoltStore(path, model string, dimension int) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketSpaces, bucketChunks, bucketVectors, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, dimension: dimension, now: time.Now}
	if err := s.Migrate(model, dimension); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// PutChunks stores all chunks in one transaction. Spaces that do not
// exist yet are created with their id as name.
func (s *BoltStore) PutChunks(ctx context.Context, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.now().UnixNano()

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, chunk := range chunks {
			if err := CheckDimension(chunk.Embedding, s.dimension); err != nil {
				return fmt.Errorf("chunk %s: %w", chunk.DocID, err)
			}
			if err := ensureSpace(tx, domain.Space{ID: chunk.SpaceID}, now); err != nil {
				return err
			}

			chunkBucket, err := tx.Bucket(bucketChunks).CreateBucketIfNotExists([]byte(chunk.SpaceID))
			if err != nil {
				return err
			}
			vecBucket, err := tx.Bucket(bucketVectors).CreateBucketIfNotExists([]byte(chunk.SpaceID))
			if err != nil {
				return err
			}

			data, err := json.Marshal(chunkRecord{
				FileID:         chunk.FileID,
				OriginalFileID: chunk.OriginalFileID,
				ChunkIndex:     chunk.Index,
				Text:           chunk.Text,
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
			if err := chunkBucket.Put([]byte(chunk.DocID), data); err != nil {
				return err
			}
			if err := vecBucket.Put([]byte(chunk.DocID), EncodeVector(chunk.Embedding)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Search scans the vectors of one space and returns the k closest.
func (s *BoltStore) Search(ctx context.Context, spaceID string, query []float32, k int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckDimension(query, s.dimension); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}

	results := []domain.SearchResult{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		vecBucket := tx.Bucket(bucketVectors).Bucket([]byte(spaceID))
		chunkBucket := tx.Bucket(bucketChunks).Bucket([]byte(spaceID))
		if vecBucket == nil || chunkBucket == nil {
			return nil
		}

		return vecBucket.ForEach(func(docID, blob []byte) error {
			vec, err := DecodeVector(blob)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", docID, err)
			}
			var rec chunkRecord
			if err := json.Unmarshal(chunkBucket.Get(docID), &rec); err != nil {
				return fmt.Errorf("chunk %s: %w", docID, err)
			}
			dist := L2Distance(query, vec)
			results = append(results, domain.SearchResult{
				DocID:          string(docID),
				Text:           rec.Text,
				FileID:         rec.FileID,
				OriginalFileID: rec.OriginalFileID,
				ChunkIndex:     rec.ChunkIndex,
				Distance:       dist,
				Score:          dist,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return TopK(results, k), nil
}

// EnsureSpace creates the space if it does not exist. An existing space
// keeps its name.
func (s *BoltStore) EnsureSpace(ctx context.Context, space domain.Space) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.now().UnixNano()
	return s.db.Update(func(tx *bbolt.Tx) error {
		return ensureSpace(tx, space, now)
	})
}

func ensureSpace(tx *bbolt.Tx, space domain.Space, now int64) error {
	b := tx.Bucket(bucketSpaces)
	if b.Get([]byte(space.ID)) != nil {
		return nil
	}
	name := space.Name
	if name == "" {
		name = space.ID
	}
	data, err := json.Marshal(spaceRecord{Name: name, CreatedAt: now})
	if err != nil {
		return err
	}
	return b.Put([]byte(space.ID), data)
}

func (s *BoltStore) RenameSpace(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSpaces)
		data := b.Get([]byte(id))
		if data == nil {
			return domain.Errorf(domain.ErrNotFound, "rename space", "space %q", id)
		}
		var rec spaceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.Name = name
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}

// ListSpaces returns all spaces, oldest first.
func (s *BoltStore) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spaces := []domain.Space{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSpaces).ForEach(func(k, v []byte) error {
			var rec spaceRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("space %s: %w", k, err)
			}
			spaces = append(spaces, domain.Space{
				ID:        string(k),
				Name:      rec.Name,
				CreatedAt: time.Unix(0, rec.CreatedAt).UTC(),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	SortSpaces(spaces)
	return spaces, nil
}

// ListDocuments groups the chunks of a space by file.
func (s *BoltStore) ListDocuments(ctx context.Context, spaceID string) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	byFile := make(map[string]*domain.Document)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks).Bucket([]byte(spaceID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec chunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("chunk %s: %w", k, err)
			}
			created := time.Unix(0, rec.CreatedAt).UTC()
			doc, ok := byFile[rec.FileID]
			if !ok {
				doc = &domain.Document{
					FileID:         rec.FileID,
					OriginalFileID: rec.OriginalFileID,
					SpaceID:        spaceID,
					CreatedAt:      created,
				}
				byFile[rec.FileID] = doc
			}
			doc.ChunkCount++
			if created.Before(doc.CreatedAt) {
				doc.CreatedAt = created
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(byFile))
	for _, doc := range byFile {
		docs = append(docs, *doc)
	}
	SortDocuments(docs)
	return docs, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SortSpaces orders spaces by creation time, then id.
func SortSpaces(spaces []domain.Space) {
	sort.Slice(spaces, func(i, j int) bool {
		if !spaces[i].CreatedAt.Equal(spaces[j].CreatedAt) {
			return spaces[i].CreatedAt.Before(spaces[j].CreatedAt)
		}
		return spaces[i].ID < spaces[j].ID
	})
}

// SortDocuments orders documents by creation time, then file id.
func SortDocuments(docs []domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].FileID < docs[j].FileID
	})
}
