package service

import (
	"context"
	"errors"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// DefaultRetrievalK is the number of chunks retrieved per question.
const DefaultRetrievalK = 4

// VectorIndex is the persistent, append-only store of embedded chunks.
type VectorIndex interface {
	// Exists reports whether a persisted index is present.
	Exists(ctx context.Context) (bool, error)
	// Load opens the persisted index, failing with domain.ErrIndexNotFound
	// when there is none.
	Load(ctx context.Context) error
	Insert(ctx context.Context, records []domain.IndexRecord) error
	// Query returns up to k records, best match first.
	Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

// LookupIndex loads the index if one has been persisted and reports whether
// it can serve queries.
func LookupIndex(ctx context.Context, idx VectorIndex) (domain.IndexState, error) {
	exists, err := idx.Exists(ctx)
	if err != nil {
		return domain.IndexStateNotIndexed, err
	}
	if !exists {
		return domain.IndexStateNotIndexed, nil
	}
	if err := idx.Load(ctx); err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return domain.IndexStateNotIndexed, nil
		}
		return domain.IndexStateNotIndexed, err
	}
	return domain.IndexStateReady, nil
}
