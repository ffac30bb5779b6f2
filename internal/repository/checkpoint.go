package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// CheckpointRepository stores conversation checkpoints in Postgres.
type CheckpointRepository struct {
	db dbtx
}

func NewCheckpointRepository(pool *pgxpool.Pool) *CheckpointRepository {
	return &CheckpointRepository{db: pool}
}

func NewCheckpointRepositoryWithTx(tx pgx.Tx) *CheckpointRepository {
	return &CheckpointRepository{db: tx}
}

// Get returns the stored messages for threadID, or false if there are none.
func (r *CheckpointRepository) Get(ctx context.Context, threadID string) ([]domain.Message, bool, error) {
	var raw []byte
	err := r.db.QueryRow(ctx,
		`SELECT messages FROM conversation_checkpoints WHERE thread_id = $1`,
		threadID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	msgs, err := domain.DecodeMessages(raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode checkpoint for %s: %w", threadID, err)
	}
	return msgs, true, nil
}

// Put replaces the stored messages for threadID.
func (r *CheckpointRepository) Put(ctx context.Context, threadID string, messages []domain.Message) error {
	if messages == nil {
		messages = []domain.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO conversation_checkpoints (thread_id, messages, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (thread_id) DO UPDATE
		 SET messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at`,
		threadID,
		string(raw),
	)
	return err
}
