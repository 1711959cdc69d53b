package extractors

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction to the extractor registered for a
// document's source type.
type Registry struct {
	byType map[domain.SourceType]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[domain.SourceType]driven.Extractor)}
}

// Register adds an extractor for each source type it declares.
// Later registrations win on conflict.
func (r *Registry) Register(e driven.Extractor) {
	for _, st := range e.SourceTypes() {
		r.byType[st] = e
	}
}

// Extract dispatches to the extractor for doc.SourceType.
func (r *Registry) Extract(ctx context.Context, doc *domain.Document, rd io.Reader) (*domain.Content, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	e, ok := r.byType[doc.SourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, doc.SourceType)
	}

	logger.Debug("Extracting %s document %s", doc.SourceType, doc.ID)
	content, err := e.Extract(ctx, doc, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	return content, nil
}
