package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_DefaultIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "papers/b.pdf", "%PDF-")
	writeFile(t, root, "notes.md", "skip")
	writeFile(t, root, "img/c.png", "skip")

	files, err := NewWalker(nil, nil).Walk(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	if files[0].RelPath != "a.txt" || files[1].RelPath != "papers/b.pdf" {
		t.Errorf("unexpected files: %s, %s", files[0].RelPath, files[1].RelPath)
	}
	if files[0].Size != 5 {
		t.Errorf("expected size 5, got %d", files[0].Size)
	}
}

func TestWalker_Excludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "x")
	writeFile(t, root, "drafts/old.txt", "x")
	writeFile(t, root, "tmp.txt", "x")

	w := NewWalker([]string{"**/*.txt"}, []string{"drafts/**", "tmp.txt"})
	files, err := w.Walk(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 1 || files[0].RelPath != "keep.txt" {
		t.Errorf("expected only keep.txt, got %v", files)
	}
}

func TestWalker_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewWalker(nil, nil).Walk(ctx, root); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReadFile_Limit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.txt", "0123456789")
	path := filepath.Join(root, "big.txt")

	if _, err := ReadFile(path, 5); err == nil {
		t.Error("expected size error")
	} else {
		var tooLarge *TooLargeError
		if !errors.As(err, &tooLarge) || tooLarge.Size != 10 {
			t.Errorf("expected TooLargeError with size 10, got %v", err)
		}
	}

	data, err := ReadFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0123456789" {
		t.Errorf("unexpected content %q", data)
	}
}
