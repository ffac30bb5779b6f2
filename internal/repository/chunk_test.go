//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/testutil"
)

func chunkRecord(text string, page *int, vec ...float32) domain.IndexRecord {
	return domain.IndexRecord{
		ID:        uuid.NewString(),
		Embedding: vec,
		Chunk: domain.Chunk{
			Text:       text,
			SourcePath: "/docs/manual.pdf",
			PageIndex:  page,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestChunkRepository_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewChunkRepository(pool)

	exists, err := repo.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, repo.Load(ctx), domain.ErrIndexNotFound)

	_, err = repo.Query(ctx, []float32{1, 0}, 4)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestChunkRepository_InsertAndQuery(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewChunkRepository(pool)
	page := 2

	require.NoError(t, repo.Insert(ctx, []domain.IndexRecord{
		chunkRecord("cats", &page, 1, 0, 0),
		chunkRecord("dogs", nil, 0, 1, 0),
		chunkRecord("cats and dogs", nil, 0.7, 0.7, 0),
	}))

	require.NoError(t, repo.Load(ctx))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := repo.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "cats", hits[0].Chunk.Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	require.NotNil(t, hits[0].Chunk.PageIndex)
	assert.Equal(t, 2, *hits[0].Chunk.PageIndex)
	assert.Equal(t, "cats and dogs", hits[1].Chunk.Text)
	assert.Nil(t, hits[1].Chunk.PageIndex)
}

func TestChunkRepository_RejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewChunkRepository(pool)
	require.NoError(t, repo.Insert(ctx, []domain.IndexRecord{chunkRecord("a", nil, 1, 0)}))

	err := repo.Insert(ctx, []domain.IndexRecord{
		chunkRecord("b", nil, 0, 1),
		chunkRecord("c", nil, 1, 0, 0),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the rejected batch must roll back")

	_, err = repo.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
