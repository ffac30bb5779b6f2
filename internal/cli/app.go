// Package cli wires configuration into services and exposes the ragchatd
// commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/ragchat/internal/anthropic"
	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/cloo-solutions/ragchat/internal/loader"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/cloo-solutions/ragchat/internal/prompt"
	"github.com/cloo-solutions/ragchat/internal/repository"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/cloo-solutions/ragchat/internal/storage"
	"github.com/cloo-solutions/ragchat/internal/vectorstore"
)

// App holds the wired services for one process.
type App struct {
	Config       *config.Config
	Index        service.VectorIndex
	Embeddings   *service.EmbeddingService
	Sessions     *service.SessionStore
	Ingestion    *service.IngestionService
	Conversation *service.ConversationService

	closers []func()
}

// SetupLogging installs a JSON slog handler as the default logger.
func SetupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// NewApp builds every service from cfg. migrate controls whether Postgres
// migrations run when a Postgres backend is selected.
func NewApp(ctx context.Context, cfg *config.Config, migrate bool) (*App, error) {
	app := &App{Config: cfg}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	docsDir, err := cfg.DocumentsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve documents directory: %w", err)
	}

	var pool *pgxpool.Pool
	if cfg.NeedsDatabase() {
		pool, err = database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, Retries: 3})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		slog.Info("connected to database")

		if migrate {
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				app.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}

	switch cfg.IndexBackend {
	case config.BackendPostgres:
		app.Index = repository.NewChunkRepository(pool)
	default:
		app.Index = vectorstore.NewFileIndex(cfg.VectorDBDir)
	}

	checkpoints, err := app.newCheckpointStore(ctx, pool)
	if err != nil {
		app.Close()
		return nil, err
	}

	embedClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	app.Embeddings = service.NewEmbeddingService(embedClient, service.EmbeddingOptions{
		Dimensions: cfg.EmbeddingDimensions,
		RateLimit:  cfg.EmbedRateLimit,
	})

	builder := prompt.NewBuilder(nil, 0)
	if cfg.ContextTokenBudget > 0 {
		counter, err := prompt.NewTiktokenCounter(cfg.ModelName)
		if err != nil {
			slog.Warn("token counter unavailable, context will not be trimmed", "error", err)
		} else {
			builder = prompt.NewBuilder(counter, cfg.ContextTokenBudget)
		}
	}

	var generator service.Generator
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		generator = anthropic.NewGenerator(anthropic.Config{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.ModelName,
			Temperature: cfg.Temperature,
		}, builder)
	default:
		generator = openai.NewChatGenerator(
			openai.NewAPIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
			openai.ChatConfig{Model: cfg.ModelName, Temperature: float32(cfg.Temperature)},
			builder,
		)
	}

	app.Ingestion = service.NewIngestionService(
		service.NewMetadataTracker(docsDir, cfg.VectorDBDir),
		loader.New(),
		service.NewChunkSplitter(service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}),
		app.Embeddings,
		app.Index,
	)

	app.Sessions = service.NewSessionStore(cfg.MaxMessages)
	app.Conversation = service.NewConversationService(
		app.Sessions,
		app.Index,
		app.Embeddings,
		generator,
		checkpoints,
		service.ConversationConfig{
			RetrievalK:   cfg.RetrievalK,
			ModelTimeout: cfg.ModelTimeout,
		},
	)

	slog.Info("services ready",
		"index_backend", cfg.IndexBackend,
		"checkpoint_backend", cfg.CheckpointBackend,
		"llm_provider", cfg.LLMProvider,
		"model", cfg.ModelName,
		"embedding_model", cfg.EmbeddingModel,
	)
	return app, nil
}

func (a *App) newCheckpointStore(ctx context.Context, pool *pgxpool.Pool) (service.CheckpointStore, error) {
	cfg := a.Config
	switch cfg.CheckpointBackend {
	case config.BackendPostgres:
		return repository.NewCheckpointRepository(pool), nil
	case config.BackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		slog.Info("checkpoint bucket ready", "bucket", cfg.S3Bucket)
		return storage.NewS3CheckpointStore(client), nil
	default:
		store, err := storage.NewSQLiteCheckpointStore(cfg.CheckpointPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { store.Close() })
		return store, nil
	}
}

// Close releases database handles in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
