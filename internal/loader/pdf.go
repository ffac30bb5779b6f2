package loader

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// PDFLoader produces one document per page, with zero-based page indexes.
type PDFLoader struct{}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

func (l *PDFLoader) Load(ctx context.Context, path string) ([]domain.Document, error) {
	// pdfcpu reads the full xref table, rejecting damaged files up front.
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("invalid pdf: %w", err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	if n := r.NumPage(); n != pageCount {
		return nil, fmt.Errorf("page count mismatch: %d vs %d", n, pageCount)
	}

	docs := make([]domain.Document, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			docs = append(docs, domain.NewPageDocument(path, "", i-1))
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		docs = append(docs, domain.NewPageDocument(path, text, i-1))
	}
	return docs, nil
}
