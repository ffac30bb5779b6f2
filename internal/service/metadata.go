package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// MetadataFileName is the side file, kept next to the vector index, that
// records which documents have already been processed.
const MetadataFileName = "processed_files.json"

// SupportedExtensions lists the document types picked up by a directory scan.
var SupportedExtensions = []string{".pdf", ".txt"}

// IsSupportedExtension reports whether path has a loadable extension,
// ignoring case.
func IsSupportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// MetadataTracker decides which documents are new or modified since the last
// successful ingestion.
type MetadataTracker struct {
	documentsDir string
	metadataPath string
}

// NewMetadataTracker creates a tracker scanning documentsDir and persisting
// into indexDir.
func NewMetadataTracker(documentsDir, indexDir string) *MetadataTracker {
	return &MetadataTracker{
		documentsDir: documentsDir,
		metadataPath: filepath.Join(indexDir, MetadataFileName),
	}
}

// Current returns modification times for the explicit paths that exist plus
// every supported file under the documents directory.
func (t *MetadataTracker) Current(explicitPaths []string) (domain.FileMetadata, error) {
	meta := make(domain.FileMetadata)

	for _, p := range explicitPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %q: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Warn("file does not exist, skipping", "path", p)
				continue
			}
			return nil, fmt.Errorf("failed to stat %q: %w", p, err)
		}
		if info.IsDir() {
			slog.Warn("path is a directory, skipping", "path", p)
			continue
		}
		meta[abs] = domain.ModTime(info.ModTime())
	}

	root, err := filepath.Abs(t.documentsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve documents directory: %w", err)
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !IsSupportedExtension(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		meta[path] = domain.ModTime(info.ModTime())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents directory: %w", err)
	}

	return meta, nil
}

// Previous loads the metadata saved by the last successful ingestion. A
// missing file means nothing has been processed yet.
func (t *MetadataTracker) Previous() (domain.FileMetadata, error) {
	data, err := os.ReadFile(t.metadataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(domain.FileMetadata), nil
		}
		return nil, fmt.Errorf("failed to read document metadata: %w", err)
	}

	meta := make(domain.FileMetadata)
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode document metadata: %w", err)
	}
	return meta, nil
}

// Diff returns, sorted, the paths in current that are absent from previous or
// strictly newer there.
func (t *MetadataTracker) Diff(current, previous domain.FileMetadata) []string {
	changed := make([]string, 0)
	for path, mtime := range current {
		old, ok := previous[path]
		if !ok || mtime > old {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// Save replaces the persisted metadata with meta.
func (t *MetadataTracker) Save(meta domain.FileMetadata) error {
	if meta == nil {
		meta = make(domain.FileMetadata)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document metadata: %w", err)
	}

	dir := filepath.Dir(t.metadataPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, MetadataFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync document metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close document metadata: %w", err)
	}
	if err := os.Rename(tmpName, t.metadataPath); err != nil {
		return fmt.Errorf("failed to replace document metadata: %w", err)
	}
	return nil
}
