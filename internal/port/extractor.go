package port

import "context"

// Extractor turns raw uploaded bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}
