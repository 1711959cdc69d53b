// Package pdf extracts text from PDF documents page by page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// SourceTypes returns the source types this extractor handles.
func (e *Extractor) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypePDF}
}

// Extract reads the PDF page by page. Each page becomes one anchor
// carrying its page number; pages are joined with blank lines.
func (e *Extractor) Extract(_ context.Context, _ *domain.Document, r io.Reader) (*domain.Content, error) {
	if r == nil {
		return nil, domain.ErrInvalidInput
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	var anchors []domain.Anchor

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		start := sb.Len()
		sb.WriteString(text)

		pageNum := i
		anchors = append(anchors, domain.Anchor{Start: start, End: sb.Len(), Page: &pageNum})
	}

	return &domain.Content{Text: sb.String(), Anchors: anchors}, nil
}
