package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendS3       = "s3"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8000"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DocumentsDir string `envconfig:"DOCUMENTS_DIR" default:"./documents"`
	VectorDBDir  string `envconfig:"VECTOR_DB_DIR" default:"./vector_db"`

	IndexBackend string `envconfig:"INDEX_BACKEND" default:"file"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	CheckpointBackend string `envconfig:"CHECKPOINT_BACKEND" default:"sqlite"`
	CheckpointPath    string `envconfig:"CHECKPOINT_PATH" default:"./data/checkpoints.db"`

	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket       string `envconfig:"S3_BUCKET" default:"ragchat-checkpoints"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"true"`

	LLMProvider     string  `envconfig:"LLM_PROVIDER" default:"openai"`
	ModelName       string  `envconfig:"MODEL_NAME" default:"llama3.2"`
	Temperature     float64 `envconfig:"TEMPERATURE" default:"0.1"`
	OpenAIAPIKey    string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string  `envconfig:"OPENAI_BASE_URL" default:"http://localhost:11434/v1"`
	AnthropicAPIKey string  `envconfig:"ANTHROPIC_API_KEY"`

	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"all-minilm"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"0"`
	EmbedRateLimit      float64 `envconfig:"EMBED_RATE_LIMIT" default:"0"`

	MaxMessages        int           `envconfig:"MAX_MESSAGES" default:"10"`
	ChunkSize          int           `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap       int           `envconfig:"CHUNK_OVERLAP" default:"200"`
	RetrievalK         int           `envconfig:"RETRIEVAL_K" default:"4"`
	ContextTokenBudget int           `envconfig:"CONTEXT_TOKEN_BUDGET" default:"0"`
	ModelTimeout       time.Duration `envconfig:"MODEL_TIMEOUT" default:"60s"`

	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"0"`
	WatchDocuments bool          `envconfig:"WATCH_DOCUMENTS" default:"false"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RAGCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.IndexBackend = strings.ToLower(cfg.IndexBackend)
	cfg.CheckpointBackend = strings.ToLower(cfg.CheckpointBackend)
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	var errs []error

	switch c.IndexBackend {
	case BackendFile:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres index backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend))
	}

	switch c.CheckpointBackend {
	case BackendSQLite:
		if c.CheckpointPath == "" {
			errs = append(errs, errors.New("CHECKPOINT_PATH is required for the sqlite checkpoint backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres checkpoint backend"))
		}
	case BackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 checkpoint backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CHECKPOINT_BACKEND %q", c.CheckpointBackend))
	}

	switch c.LLMProvider {
	case ProviderOpenAI:
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	if c.MaxMessages < 1 {
		errs = append(errs, errors.New("MAX_MESSAGES must be at least 1"))
	}
	if c.RetrievalK < 1 {
		errs = append(errs, errors.New("RETRIEVAL_K must be at least 1"))
	}
	if c.ModelTimeout <= 0 {
		errs = append(errs, errors.New("MODEL_TIMEOUT must be positive"))
	}
	if c.EmbeddingDimensions < 0 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSIONS must not be negative"))
	}

	return errors.Join(errs...)
}

// EnsureDirectories creates the documents and index directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DocumentsDir, c.VectorDBDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NeedsDatabase reports whether any backend uses Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.IndexBackend == BackendPostgres || c.CheckpointBackend == BackendPostgres
}

func (c *Config) HasS3Credentials() bool {
	return c.S3AccessKey != "" && c.S3SecretKey != ""
}

// DocumentsPath returns the absolute documents directory.
func (c *Config) DocumentsPath() (string, error) {
	return filepath.Abs(c.DocumentsDir)
}
