package chunker

import (
	"papertalk/internal/domain"
	"papertalk/internal/port"
)

// WindowChunker splits text into overlapping fixed-size token windows.
// Window i starts at token i*(window-overlap) and spans up to window tokens.
type WindowChunker struct {
	window    int
	overlap   int
	tokenizer port.Tokenizer
}

// NewWindowChunker creates a chunker. It fails with ErrInvalidConfiguration
// when the stride window-overlap would not be positive.
func NewWindowChunker(window, overlap int, tokenizer port.Tokenizer) (*WindowChunker, error) {
	if err := validate(window, overlap); err != nil {
		return nil, err
	}
	return &WindowChunker{
		window:    window,
		overlap:   overlap,
		tokenizer: tokenizer,
	}, nil
}

func validate(window, overlap int) error {
	switch {
	case window <= 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, "chunk", "window size must be positive, got %d", window)
	case overlap < 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, "chunk", "overlap must not be negative, got %d", overlap)
	case overlap >= window:
		return domain.Errorf(domain.ErrInvalidConfiguration, "chunk", "overlap %d must be smaller than window size %d", overlap, window)
	}
	return nil
}

// Chunk returns the windows of text in order. The position of a window in
// the result is its chunk index. Blank text yields no windows.
func (c *WindowChunker) Chunk(text string) ([]string, error) {
	if err := validate(c.window, c.overlap); err != nil {
		return nil, err
	}

	tokens := c.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	stride := c.window - c.overlap
	chunks := make([]string, 0, Count(len(tokens), c.window, c.overlap))
	for start := 0; ; start += stride {
		end := start + c.window
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}

// Count returns how many windows a text of n tokens produces.
func Count(n, window, overlap int) int {
	if n <= 0 || window <= 0 || overlap >= window {
		return 0
	}
	if n <= window {
		return 1
	}
	stride := window - overlap
	return (n - overlap + stride - 1) / stride
}
