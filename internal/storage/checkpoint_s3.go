package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

const checkpointPrefix = "checkpoints/"

// S3CheckpointStore keeps one JSON object per thread under checkpoints/.
type S3CheckpointStore struct {
	client *S3Client
}

func NewS3CheckpointStore(client *S3Client) *S3CheckpointStore {
	return &S3CheckpointStore{client: client}
}

// CheckpointKey returns the object key for threadID.
func CheckpointKey(threadID string) string {
	return checkpointPrefix + url.PathEscape(threadID) + ".json"
}

func (s *S3CheckpointStore) Get(ctx context.Context, threadID string) ([]domain.Message, bool, error) {
	data, err := s.client.GetObject(ctx, CheckpointKey(threadID))
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	msgs, err := domain.DecodeMessages(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode checkpoint for %s: %w", threadID, err)
	}
	return msgs, true, nil
}

func (s *S3CheckpointStore) Put(ctx context.Context, threadID string, messages []domain.Message) error {
	if messages == nil {
		messages = []domain.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return s.client.PutObject(ctx, CheckpointKey(threadID), data, "application/json")
}
