package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"papertalk/internal/adapter/analyzer"
	"papertalk/internal/domain"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestWindowChunkerCount(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()

	tests := []struct {
		n, window, overlap int
		want               int
	}{
		{n: 1, window: 500, overlap: 50, want: 1},
		{n: 500, window: 500, overlap: 50, want: 1},
		{n: 501, window: 500, overlap: 50, want: 2},
		{n: 950, window: 500, overlap: 50, want: 2},
		{n: 951, window: 500, overlap: 50, want: 3},
		{n: 10, window: 4, overlap: 1, want: 3},
		{n: 11, window: 4, overlap: 1, want: 4},
		{n: 7, window: 3, overlap: 0, want: 3},
	}

	for _, tc := range tests {
		chunker, err := NewWindowChunker(tc.window, tc.overlap, tokenizer)
		if err != nil {
			t.Fatal(err)
		}
		chunks, err := chunker.Chunk(words(tc.n))
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) != tc.want {
			t.Errorf("n=%d window=%d overlap=%d: expected %d chunks, got %d",
				tc.n, tc.window, tc.overlap, tc.want, len(chunks))
		}
		if got := Count(tc.n, tc.window, tc.overlap); got != tc.want {
			t.Errorf("Count(%d, %d, %d) = %d, want %d", tc.n, tc.window, tc.overlap, got, tc.want)
		}
	}
}

func TestWindowChunkerWindows(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	chunker, err := NewWindowChunker(4, 1, tokenizer)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := chunker.Chunk("a b c d e f g h i j")
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"a b c d", "d e f g", "g h i j"}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, chunks)
	}
	for i := range expected {
		if chunks[i] != expected[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, expected[i], chunks[i])
		}
	}
}

func TestWindowChunkerReconstruction(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	chunker, err := NewWindowChunker(7, 2, tokenizer)
	if err != nil {
		t.Fatal(err)
	}

	text := words(40)
	chunks, err := chunker.Chunk(text)
	if err != nil {
		t.Fatal(err)
	}

	// Dropping the overlap prefix of every chunk after the first gives back the text.
	var rebuilt []string
	for i, chunk := range chunks {
		tokens := tokenizer.Encode(chunk)
		if len(tokens) > 7 {
			t.Errorf("chunk %d has %d tokens, window is 7", i, len(tokens))
		}
		if i > 0 {
			prev := tokenizer.Encode(chunks[i-1])
			if strings.Join(prev[len(prev)-2:], " ") != strings.Join(tokens[:2], " ") {
				t.Errorf("chunk %d does not share 2 tokens with chunk %d", i, i-1)
			}
			tokens = tokens[2:]
		}
		rebuilt = append(rebuilt, tokens...)
	}
	if strings.Join(rebuilt, " ") != text {
		t.Errorf("reconstructed text does not match input")
	}
}

func TestWindowChunkerShortText(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	chunker, err := NewWindowChunker(500, 50, tokenizer)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := chunker.Chunk("Just a short abstract")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0] != "Just a short abstract" {
		t.Errorf("expected the whole text as one chunk, got %v", chunks)
	}
}

func TestWindowChunkerEmptyContent(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	chunker, err := NewWindowChunker(500, 50, tokenizer)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := chunker.Chunk("  \n ")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank content, got %d", len(chunks))
	}
}

func TestWindowChunkerInvalidConfiguration(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()

	cases := [][2]int{{5, 5}, {5, 6}, {0, 0}, {5, -1}}
	for _, c := range cases {
		_, err := NewWindowChunker(c[0], c[1], tokenizer)
		if !errors.Is(err, domain.ErrInvalidConfiguration) {
			t.Errorf("window=%d overlap=%d: expected ErrInvalidConfiguration, got %v", c[0], c[1], err)
		}
	}
}
