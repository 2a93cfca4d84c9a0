package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"papertalk/internal/domain"
)

func newTestStore(t *testing.T, dim int) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"), "test-model", dim)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunks(space, fileID, name string, vecs ...[]float32) []domain.Chunk {
	chunks := make([]domain.Chunk, len(vecs))
	for i, v := range vecs {
		chunks[i] = domain.Chunk{
			DocID:          domain.ChunkDocID(fileID, i),
			FileID:         fileID,
			OriginalFileID: name,
			SpaceID:        space,
			Index:          i,
			Text:           name + " chunk",
			Embedding:      v,
		}
	}
	return chunks
}

func TestBoltStore_SearchOrdersByDistance(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	chunks := testChunks("demo", "f1", "paper.pdf",
		[]float32{0, 0},
		[]float32{1, 0},
		[]float32{3, 4},
	)
	if err := s.PutChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "demo", []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].DocID != "doc_f1_1" || results[0].Distance != 0 {
		t.Errorf("expected exact match first, got %+v", results[0])
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not ascending at %d", i)
		}
	}
	if math.Abs(results[2].Distance-math.Sqrt(20)) > 1e-9 {
		t.Errorf("expected distance sqrt(20), got %f", results[2].Distance)
	}
	if results[0].OriginalFileID != "paper.pdf" || results[0].ChunkIndex != 1 {
		t.Errorf("unexpected metadata: %+v", results[0])
	}

	top, err := s.Search(ctx, "demo", []float32{0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].DocID != "doc_f1_0" {
		t.Errorf("expected k=1 to return the closest chunk, got %+v", top)
	}
}

func TestBoltStore_SearchFiltersBySpace(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	if err := s.PutChunks(ctx, testChunks("a", "fa", "a.txt", []float32{0, 0})); err != nil {
		t.Fatal(err)
	}
	if err := s.PutChunks(ctx, testChunks("b", "fb", "b.txt", []float32{0, 0})); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "a", []float32{0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].FileID != "fa" {
		t.Errorf("expected only space a results, got %+v", results)
	}
}

func TestBoltStore_SearchEmptySpace(t *testing.T) {
	s := newTestStore(t, 2)

	results, err := s.Search(context.Background(), "nothing-here", []float32{1, 1}, 5)
	if err != nil {
		t.Fatalf("expected no error for empty space, got %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil result, got %v", results)
	}
}

func TestBoltStore_PutChunksIsAtomic(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	chunks := testChunks("demo", "f1", "bad.txt",
		[]float32{0, 0},
		[]float32{1, 1, 1},
	)
	if err := s.PutChunks(ctx, chunks); err == nil {
		t.Fatal("expected dimension mismatch error")
	}

	results, err := s.Search(ctx, "demo", []float32{0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected failed write to leave no chunks, got %d", len(results))
	}
	spaces, err := s.ListSpaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(spaces) != 0 {
		t.Errorf("expected failed write to leave no spaces, got %v", spaces)
	}
}

func TestBoltStore_Spaces(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	clock := time.Unix(1000, 0)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	if err := s.EnsureSpace(ctx, domain.Space{ID: "papers", Name: "Papers"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutChunks(ctx, testChunks("demo", "f1", "x.txt", []float32{0, 0})); err != nil {
		t.Fatal(err)
	}
	// Existing spaces keep their name.
	if err := s.EnsureSpace(ctx, domain.Space{ID: "papers", Name: "Other"}); err != nil {
		t.Fatal(err)
	}

	spaces, err := s.ListSpaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(spaces) != 2 {
		t.Fatalf("expected 2 spaces, got %v", spaces)
	}
	if spaces[0].ID != "papers" || spaces[0].Name != "Papers" {
		t.Errorf("unexpected first space: %+v", spaces[0])
	}
	if spaces[1].ID != "demo" || spaces[1].Name != "demo" {
		t.Errorf("expected implicit space named after its id, got %+v", spaces[1])
	}

	if err := s.RenameSpace(ctx, "demo", "Demo Papers"); err != nil {
		t.Fatal(err)
	}
	spaces, _ = s.ListSpaces(ctx)
	if spaces[1].Name != "Demo Papers" {
		t.Errorf("expected rename to stick, got %+v", spaces[1])
	}

	err = s.RenameSpace(ctx, "missing", "x")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBoltStore_ListDocuments(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	if err := s.PutChunks(ctx, testChunks("demo", "f1", "one.pdf", []float32{0, 0}, []float32{0, 1})); err != nil {
		t.Fatal(err)
	}
	if err := s.PutChunks(ctx, testChunks("demo", "f2", "two.txt", []float32{1, 0})); err != nil {
		t.Fatal(err)
	}

	docs, err := s.ListDocuments(ctx, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %+v", docs)
	}
	counts := map[string]int{}
	for _, d := range docs {
		counts[d.OriginalFileID] = d.ChunkCount
	}
	if counts["one.pdf"] != 2 || counts["two.txt"] != 1 {
		t.Errorf("unexpected chunk counts: %v", counts)
	}

	empty, err := s.ListDocuments(ctx, "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no documents, got %v", empty)
	}
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	s, err := NewBoltStore(path, "test-model", 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutChunks(ctx, testChunks("demo", "f1", "x.txt", []float32{0.5, 0.25})); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewBoltStore(path, "test-model", 2)
	if err != nil {
		t.Fatal(err)
	}
	results, err := s.Search(ctx, "demo", []float32{0.5, 0.25}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Distance != 0 {
		t.Errorf("expected persisted vector to round-trip, got %+v", results)
	}
	s.Close()

	_, err = NewBoltStore(path, "test-model", 3)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for dimension change, got %v", err)
	}
}

func TestBoltStore_MigrateRecordsSchema(t *testing.T) {
	s := newTestStore(t, 4)

	info, err := s.GetSchemaInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != CurrentSchemaVersion || info.Dimension != 4 || info.EmbeddingModel != "test-model" {
		t.Errorf("unexpected schema info after open: %+v", info)
	}

	result, err := s.CheckMigration("test-model", 4)
	if err != nil {
		t.Fatal(err)
	}
	if result.NeedsMigration || result.Incompatible {
		t.Errorf("expected an up to date schema, got %+v", result)
	}

	if err := s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}); err != nil {
		t.Fatal(err)
	}
	err = s.Migrate("test-model", 4)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for a newer schema, got %v", err)
	}
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1.5, -2.25, 0, float32(math.Pi)}
	got, err := DecodeVector(EncodeVector(v))
	if err != nil {
		t.Fatal(err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: expected %f, got %f", i, v[i], got[i])
		}
	}

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestL2Distance(t *testing.T) {
	if d := L2Distance([]float32{0, 0}, []float32{3, 4}); d != 5 {
		t.Errorf("expected 5, got %f", d)
	}
	if d := L2Distance([]float32{1}, []float32{1, 2}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %f", d)
	}
}
