package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// ChunkRepository is a vector index backed by the pgvector document_chunks
// table.
type ChunkRepository struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool, tx: NewTxRunner(pool)}
}

// Exists reports whether any chunk has been stored.
func (r *ChunkRepository) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM document_chunks)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document chunks: %w", err)
	}
	return exists, nil
}

// Load checks that the index has content. Rows are queried in place, so
// there is nothing to read into memory.
func (r *ChunkRepository) Load(ctx context.Context) error {
	exists, err := r.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrIndexNotFound
	}
	return nil
}

// Insert stores all records in one transaction.
func (r *ChunkRepository) Insert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		dims, err := storedDimensions(ctx, tx)
		if err != nil {
			return err
		}
		if dims == 0 {
			dims = len(records[0].Embedding)
		}

		for _, rec := range records {
			if len(rec.Embedding) == 0 || len(rec.Embedding) != dims {
				return domain.ErrDimensionMismatch.Wrap(
					fmt.Errorf("record %s has %d dimensions, expected %d", rec.ID, len(rec.Embedding), dims))
			}

			createdAt := rec.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}

			var page *int32
			if rec.Chunk.PageIndex != nil {
				p := int32(*rec.Chunk.PageIndex)
				page = &p
			}

			_, err := tx.Exec(ctx,
				`INSERT INTO document_chunks
					(id, source_path, page_index, chunk_index, start_offset, content, embedding, created_at)
				 VALUES
					($1, $2, $3, $4, $5, $6, $7, $8)`,
				rec.ID,
				rec.Chunk.SourcePath,
				page,
				rec.Chunk.ChunkIndex,
				rec.Chunk.StartOffset,
				rec.Chunk.Text,
				pgvector.NewVector(rec.Embedding),
				createdAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// Query returns the k chunks closest to embedding by cosine distance.
func (r *ChunkRepository) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	dims, err := storedDimensions(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return nil, domain.ErrIndexNotFound
	}
	if len(embedding) != dims {
		return nil, domain.ErrDimensionMismatch.Wrap(
			fmt.Errorf("query has %d dimensions, index has %d", len(embedding), dims))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT source_path, page_index, chunk_index, start_offset, content,
			1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 ORDER BY embedding <=> $1, created_at, id
		 LIMIT $2`,
		pgvector.NewVector(embedding),
		k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query document chunks: %w", err)
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, k)
	for rows.Next() {
		var (
			c     domain.Chunk
			page  *int32
			score float64
		)
		if err := rows.Scan(&c.SourcePath, &page, &c.ChunkIndex, &c.StartOffset, &c.Text, &score); err != nil {
			return nil, err
		}
		if page != nil {
			p := int(*page)
			c.PageIndex = &p
		}
		results = append(results, domain.ScoredChunk{Chunk: c, Score: float32(score)})
	}
	return results, rows.Err()
}

func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count document chunks: %w", err)
	}
	return int(n), nil
}

// storedDimensions returns the dimensionality of stored embeddings, or 0 for
// an empty table.
func storedDimensions(ctx context.Context, db dbtx) (int, error) {
	var dims int32
	err := db.QueryRow(ctx, `SELECT vector_dims(embedding) FROM document_chunks LIMIT 1`).Scan(&dims)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read embedding dimensions: %w", err)
	}
	return int(dims), nil
}
