package service

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// ChunkConfig controls how documents are split for embedding. Sizes are
// measured in runes.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// Break points, strongest first. Sentence ends share one level.
var chunkSeparators = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
}

// ChunkSplitter splits documents into overlapping windows that prefer to end
// on paragraph, line, sentence, then word boundaries.
type ChunkSplitter struct {
	cfg ChunkConfig
}

// NewChunkSplitter creates a splitter. A non-positive size falls back to the
// defaults and an overlap that does not fit in a window is reduced to a
// quarter of the size.
func NewChunkSplitter(cfg ChunkConfig) *ChunkSplitter {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 4
	}
	return &ChunkSplitter{cfg: cfg}
}

// Config returns the effective configuration.
func (s *ChunkSplitter) Config() ChunkConfig {
	return s.cfg
}

// Split cuts doc into chunks. Every chunk's text equals the document content
// starting at StartOffset, so dropping the overlaps rebuilds the document.
func (s *ChunkSplitter) Split(doc domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	runes := []rune(doc.Content)
	n := len(runes)
	chunks := make([]domain.Chunk, 0, n/s.cfg.Size+1)

	start := 0
	for start < n {
		end := start + s.cfg.Size
		if end > n {
			end = n
		}
		if end < n {
			end = s.cutPoint(runes, start, end)
		}

		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, domain.Chunk{
				Text:        text,
				SourcePath:  doc.SourcePath,
				PageIndex:   doc.PageIndex,
				ChunkIndex:  len(chunks),
				StartOffset: start,
			})
		}

		if end >= n {
			break
		}

		next := end - s.cfg.Overlap
		for i := next; i < end; i++ {
			if i == 0 || unicode.IsSpace(runes[i-1]) {
				next = i
				break
			}
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// cutPoint picks where a window that would end at end should stop. The cut
// never lands in the first half of the window or inside the overlap, so the
// next window always moves forward.
func (s *ChunkSplitter) cutPoint(runes []rune, start, end int) int {
	floor := start + s.cfg.Size/2
	if o := start + s.cfg.Overlap; o > floor {
		floor = o
	}

	for _, level := range chunkSeparators {
		best := -1
		for _, sep := range level {
			if cut := lastCut(runes, []rune(sep), floor, end); cut > best {
				best = cut
			}
		}
		if best > 0 {
			return best
		}
	}

	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// lastCut returns the largest position p in (lo, hi] such that sep ends at p,
// or -1.
func lastCut(runes, sep []rune, lo, hi int) int {
	for p := hi; p > lo; p-- {
		from := p - len(sep)
		if from < 0 {
			break
		}
		if runesEqual(runes[from:p], sep) {
			return p
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
