package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// SQLiteCheckpointStore persists checkpoints in a local SQLite database.
type SQLiteCheckpointStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteCheckpointStore opens (or creates) the database at path.
func NewSQLiteCheckpointStore(path string) (*SQLiteCheckpointStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	// WAL lets readers proceed while a turn is being written.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_checkpoints (
			thread_id  TEXT PRIMARY KEY,
			messages   TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}

	return &SQLiteCheckpointStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteCheckpointStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteCheckpointStore) Path() string {
	return s.path
}

func (s *SQLiteCheckpointStore) Get(ctx context.Context, threadID string) ([]domain.Message, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT messages FROM conversation_checkpoints WHERE thread_id = ?`, threadID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	msgs, err := domain.DecodeMessages([]byte(raw))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode checkpoint for %s: %w", threadID, err)
	}
	return msgs, true, nil
}

func (s *SQLiteCheckpointStore) Put(ctx context.Context, threadID string, messages []domain.Message) error {
	if messages == nil {
		messages = []domain.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_checkpoints (thread_id, messages, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, threadID, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}
