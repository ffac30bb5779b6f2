package domain

import "time"

// Document is the text of one source file, or one page of it for PDFs.
type Document struct {
	SourcePath string
	Content    string
	PageIndex  *int
}

// NewPageDocument creates a Document for a single zero-based page.
func NewPageDocument(sourcePath, content string, page int) Document {
	return Document{
		SourcePath: sourcePath,
		Content:    content,
		PageIndex:  &page,
	}
}

// Chunk is a bounded slice of a Document, the unit of embedding and retrieval.
type Chunk struct {
	Text        string `json:"text"`
	SourcePath  string `json:"source_path"`
	PageIndex   *int   `json:"page_index,omitempty"`
	ChunkIndex  int    `json:"chunk_index"`
	StartOffset int    `json:"start_offset"`
}

// IndexRecord pairs a chunk with its embedding. Records are append-only.
type IndexRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Chunk     Chunk     `json:"chunk"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk is a query hit, higher Score is a closer match.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// IndexState is the result of looking up the vector index.
type IndexState int

const (
	IndexStateNotIndexed IndexState = iota
	IndexStateReady
)

func (s IndexState) String() string {
	if s == IndexStateReady {
		return "ready"
	}
	return "not_indexed"
}

// FileMetadata maps absolute file paths to modification times in
// UTC epoch seconds.
type FileMetadata map[string]float64

// ModTime converts a file modification time to FileMetadata's unit.
func ModTime(t time.Time) float64 {
	return float64(t.UTC().UnixNano()) / float64(time.Second)
}
