package port

// Chunker splits extracted document text into ordered, overlapping windows.
// The position of a window in the result is its chunk index.
type Chunker interface {
	Chunk(text string) ([]string, error)
}
