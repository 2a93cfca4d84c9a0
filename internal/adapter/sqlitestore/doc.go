// Package sqlitestore provides a vector store backed by a single SQLite file.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that needs no
// CGO. Vectors are stored as little-endian float32 blobs next to their chunk
// text; search loads the vectors of one space and ranks them by L2 distance.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are tracked in schema_migrations.
// The embedding dimension is recorded in store_meta on first open; opening
// the file with a different dimension fails with ErrInvalidConfiguration.
package sqlitestore
