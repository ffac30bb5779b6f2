package loader

import (
	"context"
	"os"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// TextLoader reads a plain text file as a single document.
type TextLoader struct{}

func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

func (l *TextLoader) Load(ctx context.Context, path string) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Document{{
		SourcePath: path,
		Content:    strings.ToValidUTF8(string(data), "�"),
	}}, nil
}
