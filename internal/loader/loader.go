// Package loader turns files on disk into documents, dispatching on the file
// extension.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// FileLoader loads one kind of file.
type FileLoader interface {
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

// Registry picks a FileLoader by lowercase extension.
type Registry struct {
	loaders map[string]FileLoader
}

// New returns a registry handling .txt and .pdf files.
func New() *Registry {
	return &Registry{
		loaders: map[string]FileLoader{
			".txt": NewTextLoader(),
			".pdf": NewPDFLoader(),
		},
	}
}

// Register adds or replaces the loader for ext.
func (r *Registry) Register(ext string, l FileLoader) {
	r.loaders[strings.ToLower(ext)] = l
}

// Load reads path. Missing files fail with domain.ErrMissingFile and
// unknown extensions with domain.ErrUnsupportedFileType; anything else that
// goes wrong is a domain.ErrLoaderFailure.
func (r *Registry) Load(ctx context.Context, path string) ([]domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrMissingFile.Wrap(errors.New(path))
		}
		return nil, domain.ErrLoaderFailure.Wrap(err)
	}
	if info.IsDir() {
		return nil, domain.ErrUnsupportedFileType.Wrap(fmt.Errorf("%s is a directory", path))
	}

	ext := strings.ToLower(filepath.Ext(path))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType.Wrap(fmt.Errorf("%q (%s)", ext, path))
	}

	docs, err := l.Load(ctx, path)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.ErrLoaderFailure.Wrap(fmt.Errorf("%s: %w", path, err))
	}
	return docs, nil
}
