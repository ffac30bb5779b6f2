package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient mocks a single-text embedding provider
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockBatchEmbeddingClient mocks a provider that accepts batches
type MockBatchEmbeddingClient struct {
	MockEmbeddingClient
}

func (m *MockBatchEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func TestEmbeddingService_DetectDimensionsFixesDimensions(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := NewEmbeddingService(mockClient, EmbeddingOptions{})
	ctx := context.Background()

	mockClient.On("GenerateEmbedding", ctx, DimensionCheckText).Return([]float32{1, 2, 3}, nil)

	dims, err := svc.DetectDimensions(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, dims)
	assert.Equal(t, 3, svc.Dimensions())
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_DimensionMismatch(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := NewEmbeddingService(mockClient, EmbeddingOptions{Dimensions: 4})
	ctx := context.Background()

	mockClient.On("GenerateEmbedding", ctx, "hello").Return([]float32{1, 2}, nil)

	vec, err := svc.EmbedQuery(ctx, "hello")

	assert.Nil(t, vec)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbeddingService_ProviderError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := NewEmbeddingService(mockClient, EmbeddingOptions{})
	ctx := context.Background()
	apiErr := errors.New("connection refused")

	mockClient.On("GenerateEmbedding", ctx, "hello").Return(nil, apiErr)

	_, err := svc.EmbedQuery(ctx, "hello")

	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	assert.ErrorIs(t, err, apiErr)
}

func TestEmbeddingService_EmbedChunksOneByOne(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := NewEmbeddingService(mockClient, EmbeddingOptions{})
	ctx := context.Background()

	mockClient.On("GenerateEmbedding", ctx, "a").Return([]float32{1, 0}, nil)
	mockClient.On("GenerateEmbedding", ctx, "b").Return([]float32{0, 1}, nil)

	vecs, err := svc.EmbedChunks(ctx, []domain.Chunk{{Text: "a"}, {Text: "b"}})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_EmbedChunksBatched(t *testing.T) {
	mockClient := new(MockBatchEmbeddingClient)
	svc := NewEmbeddingService(mockClient, EmbeddingOptions{BatchSize: 2, RateLimit: 100})
	ctx := context.Background()

	mockClient.On("GenerateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{{1, 0}, {0, 1}}, nil)
	mockClient.On("GenerateEmbeddings", ctx, []string{"c"}).Return([][]float32{{1, 1}}, nil)

	vecs, err := svc.EmbedChunks(ctx, []domain.Chunk{{Text: "a"}, {Text: "b"}, {Text: "c"}})

	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 1}, vecs[2])
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_BatchCountMismatch(t *testing.T) {
	mockClient := new(MockBatchEmbeddingClient)
	svc := NewEmbeddingService(mockClient, EmbeddingOptions{})
	ctx := context.Background()

	mockClient.On("GenerateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{{1, 0}}, nil)

	_, err := svc.EmbedChunks(ctx, []domain.Chunk{{Text: "a"}, {Text: "b"}})

	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
}

func TestEmbeddingService_RateLimitHonoursContext(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := NewEmbeddingService(mockClient, EmbeddingOptions{RateLimit: 0.001})
	ctx := context.Background()

	mockClient.On("GenerateEmbedding", mock.Anything, "first").Return([]float32{1}, nil)
	_, err := svc.EmbedQuery(ctx, "first")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.EmbedQuery(cancelled, "second")

	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	mockClient.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, "second")
}
