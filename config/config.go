package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"papertalk/internal/domain"
)

// Config holds all configuration for papertalk.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Chunk      ChunkConfig      `yaml:"chunk"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Context    ContextConfig    `yaml:"context"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig selects and locates the vector store.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "bolt", "sqlite", "postgres", "memory"
	Path    string `yaml:"path"`    // file name inside the data dir for bolt/sqlite
	DSNEnv  string `yaml:"dsn_env"` // environment variable holding the postgres DSN
}

// ChunkConfig holds ingestion and chunking configuration.
type ChunkConfig struct {
	WindowTokens  int      `yaml:"window_tokens"`
	OverlapTokens int      `yaml:"overlap_tokens"`
	MaxFileBytes  int64    `yaml:"max_file_bytes"`
	Includes      []string `yaml:"includes"`
	Excludes      []string `yaml:"excludes"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"` // "gemini", "openai", "ollama", "hash"
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Dimension         int           `yaml:"dimension"`
	BatchSize         int           `yaml:"batch_size"`
	Workers           int           `yaml:"workers"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	Timeout           time.Duration `yaml:"timeout"`
}

// RetrieveConfig holds retrieval and re-ranking configuration.
type RetrieveConfig struct {
	TopK                int                 `yaml:"top_k"`
	CandidateMultiplier int                 `yaml:"candidate_multiplier"`
	HybridEnabled       bool                `yaml:"hybrid_enabled"`
	KeywordBoost        float64             `yaml:"keyword_boost"`
	ExpandQuery         bool                `yaml:"expand_query"`
	Synonyms            map[string][]string `yaml:"synonyms"`
	CacheSize           int                 `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL            time.Duration       `yaml:"cache_ttl"`
}

// ContextConfig holds context assembly configuration.
type ContextConfig struct {
	TokenBudget int `yaml:"token_budget"`
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"` // "gemini", "openai", "ollama", "none"
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "bolt",
			Path:    "index.db",
			DSNEnv:  "DATABASE_URL",
		},
		Chunk: ChunkConfig{
			WindowTokens:  500,
			OverlapTokens: 50,
			MaxFileBytes:  10 << 20,
			Includes:      []string{"**/*.pdf", "**/*.txt"},
			Excludes:      []string{"**/.git/**", "**/.papertalk/**", "**/node_modules/**"},
		},
		Embedding: EmbeddingConfig{
			Provider:          "gemini",
			Model:             "text-embedding-004",
			APIKeyEnv:         "GEMINI_API_KEY",
			Dimension:         768,
			BatchSize:         100,
			Workers:           4,
			RequestsPerSecond: 0,
			Timeout:           30 * time.Second,
		},
		Retrieve: RetrieveConfig{
			TopK:                3,
			CandidateMultiplier: 2,
			HybridEnabled:       true,
			KeywordBoost:        0.1,
			ExpandQuery:         false,
			CacheSize:           256,
			CacheTTL:            5 * time.Minute,
		},
		Context: ContextConfig{
			TokenBudget: 2500,
		},
		Generation: GenerationConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			Temperature: 0.2,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
	}
}

// Validate rejects parameter combinations that cannot work.
func (c *Config) Validate() error {
	const op = "config"
	switch {
	case c.Chunk.WindowTokens <= 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "chunk.window_tokens must be positive, got %d", c.Chunk.WindowTokens)
	case c.Chunk.OverlapTokens < 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "chunk.overlap_tokens must not be negative, got %d", c.Chunk.OverlapTokens)
	case c.Chunk.OverlapTokens >= c.Chunk.WindowTokens:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "chunk.overlap_tokens (%d) must be smaller than chunk.window_tokens (%d)", c.Chunk.OverlapTokens, c.Chunk.WindowTokens)
	case c.Chunk.MaxFileBytes <= 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "chunk.max_file_bytes must be positive")
	case c.Embedding.Dimension <= 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	case c.Retrieve.TopK <= 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	case c.Retrieve.CandidateMultiplier < 1:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "retrieve.candidate_multiplier must be at least 1")
	case c.Retrieve.KeywordBoost < 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "retrieve.keyword_boost must not be negative")
	case c.Context.TokenBudget <= 0:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "context.token_budget must be positive, got %d", c.Context.TokenBudget)
	}

	switch c.Storage.Backend {
	case "bolt", "sqlite", "postgres", "memory":
	default:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Embedding.Provider {
	case "gemini", "openai", "ollama", "hash":
	default:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "gemini", "openai", "ollama", "none":
	default:
		return domain.Errorf(domain.ErrInvalidConfiguration, op, "unknown generation provider %q", c.Generation.Provider)
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for papertalk.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "papertalk.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".papertalk", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv loads a .env file from dir into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DataDir returns the papertalk data directory under dir.
func DataDir(dir string) string {
	return filepath.Join(dir, ".papertalk")
}

// IndexDBPath returns the path to the embedded database file.
func (c *Config) IndexDBPath(dir string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(DataDir(dir), c.Storage.Path)
}

// EnsureDataDir ensures the .papertalk directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(DataDir(dir), 0755)
}
