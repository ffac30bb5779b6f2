package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/ragchat/internal/service"
)

// DocumentUpdater defines the ingestion entry point used by the sync job
type DocumentUpdater interface {
	UpdateDocuments(ctx context.Context, paths []string) (*service.IngestResult, error)
}

// SyncProcessor re-scans the documents directory on each run.
type SyncProcessor struct {
	updater DocumentUpdater
}

// NewSyncProcessor creates a new SyncProcessor instance
func NewSyncProcessor(updater DocumentUpdater) *SyncProcessor {
	return &SyncProcessor{updater: updater}
}

// ProcessJobs runs one ingestion pass over the documents directory
func (p *SyncProcessor) ProcessJobs(ctx context.Context) error {
	result, err := p.updater.UpdateDocuments(ctx, nil)
	if err != nil {
		return fmt.Errorf("document sync failed: %w", err)
	}

	if result.ChangedFiles > 0 {
		slog.Info("document sync complete",
			"message", result.Message,
			"changed_files", result.ChangedFiles,
			"chunks", result.Chunks,
		)
	} else {
		slog.Debug("document sync complete", "message", result.Message)
	}
	return nil
}
