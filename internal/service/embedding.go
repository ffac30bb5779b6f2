package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// DimensionCheckText is embedded at startup to discover the provider's dimensionality.
const DimensionCheckText = "Test sentence"

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbeddingClient is implemented by clients that can embed several
// texts in one request.
type BatchEmbeddingClient interface {
	EmbeddingClient
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingOptions tune an EmbeddingService.
type EmbeddingOptions struct {
	// Dimensions pins the vector length; 0 means learn it from the first
	// embedding produced.
	Dimensions int
	// RateLimit caps provider requests per second; 0 disables limiting.
	RateLimit float64
	BatchSize int
}

// EmbeddingService wraps an embedding provider, enforcing one fixed
// dimensionality and an optional request rate.
type EmbeddingService struct {
	client    EmbeddingClient
	limiter   *rate.Limiter
	batchSize int

	mu         sync.RWMutex
	dimensions int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, opts EmbeddingOptions) *EmbeddingService {
	s := &EmbeddingService{
		client:     client,
		batchSize:  opts.BatchSize,
		dimensions: opts.Dimensions,
	}
	if s.batchSize <= 0 {
		s.batchSize = 64
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Dimensions returns the fixed vector length, or 0 if not yet known.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// DetectDimensions embeds DimensionCheckText so the dimensionality is fixed before any request
// is served.
func (s *EmbeddingService) DetectDimensions(ctx context.Context) (int, error) {
	if _, err := s.EmbedQuery(ctx, DimensionCheckText); err != nil {
		return 0, err
	}
	dims := s.Dimensions()
	slog.Info("embedding provider ready", "dimensions", dims)
	return dims, nil
}

// EmbedQuery embeds a single text.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, domain.ErrEmbeddingFailure.Wrap(err)
	}
	vec, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, domain.ErrEmbeddingFailure.Wrap(err)
	}
	if err := s.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedChunks embeds chunk texts, returning one vector per chunk in order.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batcher, ok := s.client.(BatchEmbeddingClient)
	if !ok {
		out := make([][]float32, 0, len(texts))
		for _, text := range texts {
			vec, err := s.EmbedQuery(ctx, text)
			if err != nil {
				return nil, err
			}
			out = append(out, vec)
		}
		return out, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := s.wait(ctx); err != nil {
			return nil, domain.ErrEmbeddingFailure.Wrap(err)
		}
		vecs, err := batcher.GenerateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, domain.ErrEmbeddingFailure.Wrap(err)
		}
		if len(vecs) != end-start {
			return nil, domain.ErrEmbeddingFailure.Wrap(
				fmt.Errorf("provider returned %d embeddings for %d texts", len(vecs), end-start))
		}
		for _, vec := range vecs {
			if err := s.check(vec); err != nil {
				return nil, err
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// check pins the dimensionality on first use and rejects any vector that
// disagrees with it afterwards.
func (s *EmbeddingService) check(vec []float32) error {
	if len(vec) == 0 {
		return domain.ErrEmbeddingFailure.Wrap(errors.New("provider returned an empty embedding"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		s.dimensions = len(vec)
		return nil
	}
	if len(vec) != s.dimensions {
		return domain.ErrDimensionMismatch.Wrap(
			fmt.Errorf("got %d dimensions, expected %d", len(vec), s.dimensions))
	}
	return nil
}
