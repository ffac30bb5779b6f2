//go:build integration

package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/repository"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/cloo-solutions/ragchat/internal/storage"
	"github.com/cloo-solutions/ragchat/internal/testutil"
)

func TestE2E_PostgresBackends(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	env := NewEnvWith(t, func(e *Env) (service.VectorIndex, service.CheckpointStore, func()) {
		return repository.NewChunkRepository(pool), repository.NewCheckpointRepository(pool), func() {}
	})
	defer env.Close()

	assert.Equal(t, service.NotIndexedMessage, env.Chat("t-1", "anything?"))

	env.WriteDocument("doc.txt", "Postgres stores vectors with the pgvector extension.")
	require.Equal(t, "Processed 1 new or modified documents.", env.Update().Message)

	answer := env.Chat("t-1", "How are vectors stored?")
	assert.Contains(t, answer, "pgvector")

	env.Restart()

	env.Chat("t-1", "Which extension?")
	req := env.Generator.last()
	assert.Contains(t, req.Transcript, "Human: How are vectors stored?")

	count, err := repository.NewChunkRepository(pool).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, testutil.TruncateAll(ctx, pool))
	var health handlers.HealthResponse
	env.Get("/health", &health)
	assert.Equal(t, "not_indexed", health.Index)
}

func TestE2E_S3Checkpoints(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "ragchat-e2e",
		Region:          "us-east-1",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	env := NewEnvWith(t, func(e *Env) (service.VectorIndex, service.CheckpointStore, func()) {
		index, _, release := FileBackends(e)
		return index, storage.NewS3CheckpointStore(client), release
	})
	defer env.Close()

	env.WriteDocument("doc.txt", "Object storage keeps each thread as one JSON document.")
	env.Update()
	env.Chat("t/1", "Where are threads kept?")

	env.Restart()

	env.Chat("t/1", "In what format?")
	assert.Contains(t, env.Generator.last().Transcript, "Human: Where are threads kept?")

	_, err = client.HeadObject(ctx, storage.CheckpointKey("t/1"))
	assert.NoError(t, err)
}
