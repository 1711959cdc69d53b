// Package plaintext extracts plain text documents by passthrough.
package plaintext

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SourceTypes returns the source types this extractor handles.
func (e *Extractor) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeText}
}

// Extract passes the content through unchanged, anchored as a single
// page-one span.
func (e *Extractor) Extract(_ context.Context, _ *domain.Document, r io.Reader) (*domain.Content, error) {
	if r == nil {
		return nil, domain.ErrInvalidInput
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	text := string(data)
	page := 1
	return &domain.Content{
		Text:    text,
		Anchors: []domain.Anchor{{Start: 0, End: len(text), Page: &page}},
	}, nil
}
