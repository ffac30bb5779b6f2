package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// NotIndexedMessage is the answer given before any document was ingested.
const NotIndexedMessage = "No documents have been indexed yet. Please update documents first."

// DefaultModelTimeout bounds the embedding and generation calls of one turn.
const DefaultModelTimeout = 60 * time.Second

// QueryEmbedder embeds a question for retrieval.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from retrieved context and the conversation.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// CheckpointStore durably records each thread's full message history.
type CheckpointStore interface {
	Get(ctx context.Context, threadID string) ([]domain.Message, bool, error)
	Put(ctx context.Context, threadID string, messages []domain.Message) error
}

// ConversationConfig tunes a ConversationService.
type ConversationConfig struct {
	RetrievalK   int
	ModelTimeout time.Duration
}

// TurnResult is the outcome of one conversation turn. Answer is always the
// text shown to the user; on a failed turn it describes the failure and Err
// holds the cause.
type TurnResult struct {
	ThreadID string
	Answer   string
	State    domain.TurnState
	Err      error
}

// ConversationService answers questions using retrieved document chunks and
// the thread's recent history.
type ConversationService struct {
	sessions    *SessionStore
	index       VectorIndex
	embedder    QueryEmbedder
	generator   Generator
	checkpoints CheckpointStore
	cfg         ConversationConfig
}

// NewConversationService creates a new ConversationService instance
func NewConversationService(
	sessions *SessionStore,
	index VectorIndex,
	embedder QueryEmbedder,
	generator Generator,
	checkpoints CheckpointStore,
	cfg ConversationConfig,
) *ConversationService {
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = DefaultRetrievalK
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	return &ConversationService{
		sessions:    sessions,
		index:       index,
		embedder:    embedder,
		generator:   generator,
		checkpoints: checkpoints,
		cfg:         cfg,
	}
}

// Answer runs one turn for threadID. Retrieval and generation faults do not
// surface as errors; they become the turn's answer. The error return is for
// invalid input only.
func (s *ConversationService) Answer(ctx context.Context, threadID, question string) (*TurnResult, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, domain.ErrMissingRequiredField.Wrap(errors.New("thread_id"))
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrMissingRequiredField.Wrap(errors.New("question"))
	}

	ctx, span := telemetry.StartSpan(ctx, "ConversationService.Answer", telemetry.SpanAttributes{
		ThreadID:  threadID,
		Operation: "answer",
	})
	defer span.End()

	lease := s.sessions.Acquire(threadID)
	defer lease.Release()
	session := lease.Session

	// A thread whose checkpoint could not be read is neither seeded nor
	// written back this turn, so the durable history stays intact and the
	// next turn tries again.
	history, durable := s.loadCheckpoint(ctx, threadID)
	if durable && !lease.Seeded() {
		session.Seed(history)
		lease.MarkSeeded()
	}

	human := domain.HumanMessage(question)
	session.Append(human)
	history = append(history, human)
	transcript := domain.Transcript(session.Messages())

	result := &TurnResult{ThreadID: threadID}
	answer, state, err := s.respond(ctx, transcript, question)
	result.State = state
	span.SetData("state", string(state))

	switch state {
	case domain.TurnStateAnswered:
		result.Answer = answer
		session.Append(domain.AIMessage(answer))
	case domain.TurnStateNotIndexed:
		result.Answer = NotIndexedMessage
	case domain.TurnStateFailed:
		result.Answer = err.Error()
		result.Err = err
		session.Append(domain.AIMessage(result.Answer))
		span.SetError(err)
		slog.Error("conversation turn failed", "thread_id", threadID, "error", err)
	}
	history = append(history, domain.AIMessage(result.Answer))

	if durable {
		s.saveCheckpoint(ctx, threadID, history)
	}
	return result, nil
}

func (s *ConversationService) respond(ctx context.Context, transcript, question string) (string, domain.TurnState, error) {
	state, err := LookupIndex(ctx, s.index)
	if err != nil {
		return "", domain.TurnStateFailed, err
	}
	if state == domain.IndexStateNotIndexed {
		return "", domain.TurnStateNotIndexed, nil
	}

	modelCtx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	vec, err := s.embedder.EmbedQuery(modelCtx, question)
	if err != nil {
		return "", domain.TurnStateFailed, err
	}
	hits, err := s.index.Query(modelCtx, vec, s.cfg.RetrievalK)
	if err != nil {
		return "", domain.TurnStateFailed, err
	}

	contextTexts := make([]string, len(hits))
	for i, h := range hits {
		contextTexts[i] = h.Chunk.Text
	}

	answer, err := s.generator.Generate(modelCtx, domain.GenerationRequest{
		Context:    contextTexts,
		Transcript: transcript,
		Question:   question,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationFailure) {
			err = domain.ErrGenerationFailure.Wrap(err)
		}
		return "", domain.TurnStateFailed, err
	}
	return answer, domain.TurnStateAnswered, nil
}

// loadCheckpoint returns the thread's durable history. ok is false when the
// store could not be read.
func (s *ConversationService) loadCheckpoint(ctx context.Context, threadID string) (msgs []domain.Message, ok bool) {
	if s.checkpoints == nil {
		return nil, true
	}
	msgs, found, err := s.checkpoints.Get(ctx, threadID)
	if err != nil {
		slog.Warn("failed to read checkpoint, skipping write for this turn", "thread_id", threadID, "error", err)
		telemetry.CaptureError(ctx, err)
		return nil, false
	}
	if found {
		slog.Debug("checkpoint loaded", "thread_id", threadID, "messages", len(msgs))
	}
	return msgs, true
}

func (s *ConversationService) saveCheckpoint(ctx context.Context, threadID string, msgs []domain.Message) {
	if s.checkpoints == nil {
		return
	}
	if err := s.checkpoints.Put(ctx, threadID, msgs); err != nil {
		slog.Warn("failed to write checkpoint", "thread_id", threadID, "error", err)
		telemetry.CaptureError(ctx, err)
	}
}
