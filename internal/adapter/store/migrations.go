package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaInfo = []byte("schema_info")

// SchemaInfo records the storage format and the embedding space the
// stored vectors belong to.
type SchemaInfo struct {
	Version        int    `json:"version"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
}

// GetSchemaInfo retrieves the schema info. A fresh database yields a zero value.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaInfo)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchemaInfo, data)
	})
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	Incompatible   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration compares the stored schema with the running configuration.
func (s *BoltStore) CheckMigration(model string, dimension int) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
		return result, nil
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.Incompatible = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.Dimension != 0 && info.Dimension != dimension {
		result.Incompatible = true
		result.Reason = fmt.Sprintf("database holds %d-dimensional vectors, embedder produces %d", info.Dimension, dimension)
		return result, nil
	}
	if info.EmbeddingModel != "" && info.EmbeddingModel != model {
		logger.Warn("database was built with embedding model %q, now using %q", info.EmbeddingModel, model)
	}

	return result, nil
}

// Migrate brings the schema up to date, or fails with
// ErrInvalidConfiguration when the database cannot be used as configured.
func (s *BoltStore) Migrate(model string, dimension int) error {
	result, err := s.CheckMigration(model, dimension)
	if err != nil {
		return err
	}
	if result.Incompatible {
		return domain.E(domain.ErrInvalidConfiguration, "open store", fmt.Errorf("%s", result.Reason))
	}
	if !result.NeedsMigration {
		return nil
	}

	// v1 is the only schema; its buckets are created on open, so an
	// upgrade only has to record the version and vector shape.
	logger.Debug("bolt: %s", result.Reason)
	return s.SetSchemaInfo(&SchemaInfo{
		Version:        CurrentSchemaVersion,
		EmbeddingModel: model,
		Dimension:      dimension,
	})
}
