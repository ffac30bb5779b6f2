// Package vectorstore implements a file-backed vector index: an append-only
// JSON-lines file that is loaded into memory and searched by brute force.
package vectorstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// IndexFileName is the index file inside the index directory.
const IndexFileName = "index.jsonl"

const maxLineBytes = 64 << 20

// FileIndex is safe for concurrent use. Several processes may append to the
// same file; each instance rereads the bytes appended since its last read
// before answering Load, Query and Count.
type FileIndex struct {
	path string

	mu      sync.Mutex
	loaded  bool
	offset  int64
	lines   int
	records []domain.IndexRecord
	dims    int
}

// NewFileIndex creates an index stored in dir. Nothing is read or written
// until Load or Insert.
func NewFileIndex(dir string) *FileIndex {
	return &FileIndex{path: filepath.Join(dir, IndexFileName)}
}

// Path returns the index file location.
func (x *FileIndex) Path() string {
	return x.path
}

func (x *FileIndex) Exists(ctx context.Context) (bool, error) {
	info, err := os.Stat(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat index: %w", err)
	}
	return !info.IsDir(), nil
}

// Load reads the index file into memory, or the records appended to it since
// the previous read.
func (x *FileIndex) Load(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.loadLocked()
}

func (x *FileIndex) loadLocked() error {
	info, err := os.Stat(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			x.reset()
			return domain.ErrIndexNotFound
		}
		return fmt.Errorf("failed to stat index: %w", err)
	}
	switch {
	case x.loaded && info.Size() == x.offset:
		return nil
	case info.Size() < x.offset:
		// Replaced or truncated underneath us.
		x.reset()
	}
	return x.readTailLocked()
}

func (x *FileIndex) reset() {
	x.loaded = false
	x.offset = 0
	x.lines = 0
	x.records = nil
	x.dims = 0
}

// readTailLocked decodes every complete line after x.offset. A trailing line
// without its newline belongs to a write still in progress and is left for
// the next read.
func (x *FileIndex) readTailLocked() error {
	f, err := os.Open(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrIndexNotFound
		}
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(x.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek index: %w", err)
	}

	records := x.records
	dims := x.dims
	offset := x.offset
	line := x.lines
	r := bufio.NewReaderSize(f, 1<<20)
	for {
		raw, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read index: %w", err)
		}
		if len(raw) > maxLineBytes {
			return fmt.Errorf("index line %d exceeds %d bytes", line+1, maxLineBytes)
		}
		offset += int64(len(raw))
		line++

		body := bytes.TrimSpace(raw)
		if len(body) == 0 {
			continue
		}
		var rec domain.IndexRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return fmt.Errorf("failed to decode index line %d: %w", line, err)
		}
		if dims == 0 {
			dims = len(rec.Embedding)
		} else if len(rec.Embedding) != dims {
			return domain.ErrDimensionMismatch.Wrap(
				fmt.Errorf("index line %d has %d dimensions, expected %d", line, len(rec.Embedding), dims))
		}
		records = append(records, rec)
	}

	x.records = records
	x.dims = dims
	x.offset = offset
	x.lines = line
	x.loaded = true
	return nil
}

// Insert appends records to the file, creating it on first use, and then
// catches the in-memory index up with the file. The batch is rejected as a
// whole if any embedding disagrees with the index dimensionality.
func (x *FileIndex) Insert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.loadLocked(); err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
		return err
	}

	dims := x.dims
	for _, rec := range records {
		if dims == 0 {
			dims = len(rec.Embedding)
		}
		if len(rec.Embedding) == 0 || len(rec.Embedding) != dims {
			return domain.ErrDimensionMismatch.Wrap(
				fmt.Errorf("record %s has %d dimensions, expected %d", rec.ID, len(rec.Embedding), dims))
		}
	}

	// One write per batch so concurrent readers see whole lines.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	f, err := os.OpenFile(x.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open index for append: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	return x.loadLocked()
}

// Query scores every record against embedding. An index that was never
// loaded reports ErrIndexNotFound; a loaded one first picks up records
// appended since the last read.
func (x *FileIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.loaded {
		return nil, domain.ErrIndexNotFound
	}
	if err := x.loadLocked(); err != nil {
		return nil, err
	}
	if k <= 0 || len(x.records) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(embedding) != x.dims {
		return nil, domain.ErrDimensionMismatch.Wrap(
			fmt.Errorf("query has %d dimensions, index has %d", len(embedding), x.dims))
	}

	scored := make([]domain.ScoredChunk, len(x.records))
	for i, rec := range x.records {
		scored[i] = domain.ScoredChunk{
			Chunk: rec.Chunk,
			Score: float32(CosineSimilarity(embedding, rec.Embedding)),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of records, loading the index if needed. A
// missing index counts as empty.
func (x *FileIndex) Count(ctx context.Context) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.loadLocked(); err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(x.records), nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is empty, zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
