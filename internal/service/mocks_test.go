package service

import (
	"context"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockVectorIndex mocks the vector index
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockVectorIndex) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorIndex) Insert(ctx context.Context, records []domain.IndexRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockVectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

func (m *MockVectorIndex) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockDocumentLoader mocks the document loader
type MockDocumentLoader struct {
	mock.Mock
}

func (m *MockDocumentLoader) Load(ctx context.Context, path string) ([]domain.Document, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

// MockChunkEmbedder mocks batch chunk embedding
type MockChunkEmbedder struct {
	mock.Mock
}

func (m *MockChunkEmbedder) EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	args := m.Called(ctx, chunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockQueryEmbedder mocks question embedding
type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockGenerator mocks the language model
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockCheckpointStore mocks the durable checkpoint store
type MockCheckpointStore struct {
	mock.Mock
}

func (m *MockCheckpointStore) Get(ctx context.Context, threadID string) ([]domain.Message, bool, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.Message), args.Bool(1), args.Error(2)
}

func (m *MockCheckpointStore) Put(ctx context.Context, threadID string, messages []domain.Message) error {
	args := m.Called(ctx, threadID, messages)
	return args.Error(0)
}
