package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// Ingestion status messages.
const (
	StatusNoChanges   = "No new or modified documents found."
	StatusNoDocuments = "No new documents loaded to process."
)

// DocumentLoader loads a file into documents.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

// ChunkEmbedder embeds chunks, one vector per chunk in order.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error)
}

// IngestResult summarises one UpdateDocuments call.
type IngestResult struct {
	Message      string
	ChangedFiles int
	Documents    int
	Chunks       int
}

// IngestionService keeps the vector index in step with the documents on
// disk. Only one update runs at a time.
type IngestionService struct {
	mu       sync.Mutex
	tracker  *MetadataTracker
	loader   DocumentLoader
	splitter *ChunkSplitter
	embedder ChunkEmbedder
	index    VectorIndex
	now      func() time.Time
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	tracker *MetadataTracker,
	loader DocumentLoader,
	splitter *ChunkSplitter,
	embedder ChunkEmbedder,
	index VectorIndex,
) *IngestionService {
	return &IngestionService{
		tracker:  tracker,
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		now:      time.Now,
	}
}

// UpdateDocuments indexes every new or modified document among explicitPaths
// and the documents directory. Metadata is persisted only after the index
// update succeeded, so a failed run is retried in full next time.
func (s *IngestionService) UpdateDocuments(ctx context.Context, explicitPaths []string) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.UpdateDocuments", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	result, err := s.update(ctx, explicitPaths)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetData("changed_files", result.ChangedFiles)
	span.SetData("chunks", result.Chunks)
	telemetry.AddBreadcrumb(ctx, "ingestion", result.Message)
	return result, nil
}

func (s *IngestionService) update(ctx context.Context, explicitPaths []string) (*IngestResult, error) {
	current, err := s.tracker.Current(explicitPaths)
	if err != nil {
		return nil, err
	}
	previous, err := s.tracker.Previous()
	if err != nil {
		return nil, err
	}

	changed := s.tracker.Diff(current, previous)
	if len(changed) == 0 {
		return &IngestResult{Message: StatusNoChanges}, nil
	}
	slog.Info("documents changed", "count", len(changed))

	var docs []domain.Document
	for _, path := range changed {
		loaded, err := s.loader.Load(ctx, path)
		if err != nil {
			if errors.Is(err, domain.ErrUnsupportedFileType) || errors.Is(err, domain.ErrMissingFile) {
				slog.Warn("skipping document", "path", path, "error", err)
				continue
			}
			if !errors.Is(err, domain.ErrLoaderFailure) {
				err = domain.ErrLoaderFailure.Wrap(err)
			}
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	if len(docs) == 0 {
		return &IngestResult{Message: StatusNoDocuments, ChangedFiles: len(changed)}, nil
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.splitter.Split(doc)...)
	}

	if len(chunks) > 0 {
		if err := s.indexChunks(ctx, chunks); err != nil {
			return nil, err
		}
	}

	if err := s.tracker.Save(current); err != nil {
		return nil, err
	}

	return &IngestResult{
		Message:      fmt.Sprintf("Processed %d new or modified documents.", len(changed)),
		ChangedFiles: len(changed),
		Documents:    len(docs),
		Chunks:       len(chunks),
	}, nil
}

func (s *IngestionService) indexChunks(ctx context.Context, chunks []domain.Chunk) error {
	vectors, err := s.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingFailure) && !errors.Is(err, domain.ErrDimensionMismatch) {
			err = domain.ErrEmbeddingFailure.Wrap(err)
		}
		return err
	}
	if len(vectors) != len(chunks) {
		return domain.ErrEmbeddingFailure.Wrap(
			fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks)))
	}

	exists, err := s.index.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check vector index: %w", err)
	}
	if exists {
		if err := s.index.Load(ctx); err != nil {
			return fmt.Errorf("failed to load vector index: %w", err)
		}
	}

	createdAt := s.now().UTC()
	records := make([]domain.IndexRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.IndexRecord{
			ID:        uuid.NewString(),
			Embedding: vectors[i],
			Chunk:     chunk,
			CreatedAt: createdAt,
		}
	}

	if err := s.index.Insert(ctx, records); err != nil {
		return fmt.Errorf("failed to update vector index: %w", err)
	}
	slog.Info("vector index updated", "records", len(records), "created", !exists)
	return nil
}
