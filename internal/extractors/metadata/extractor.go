// Package metadata provides the degraded extractor for web and image
// sources: only the registered title and URI become retrievable text.
// Full-content extraction for these types is an extension point.
package metadata

import (
	"context"
	"io"
	"strings"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles web and image documents at the metadata level.
type Extractor struct{}

// New creates a new metadata extractor.
func New() *Extractor {
	return &Extractor{}
}

// SourceTypes returns the source types this extractor handles.
func (e *Extractor) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeWeb, domain.SourceTypeImage}
}

// Extract produces a single line of metadata text so the document is at
// least discoverable by title.
func (e *Extractor) Extract(_ context.Context, doc *domain.Document, _ io.Reader) (*domain.Content, error) {
	parts := []string{}
	if strings.TrimSpace(doc.Title) != "" {
		parts = append(parts, strings.TrimSpace(doc.Title))
	}
	if strings.TrimSpace(doc.SourceURI) != "" {
		parts = append(parts, strings.TrimSpace(doc.SourceURI))
	}

	text := strings.Join(parts, " - ")
	var anchors []domain.Anchor
	if text != "" {
		anchors = []domain.Anchor{{Start: 0, End: len(text)}}
	}
	return &domain.Content{Text: text, Anchors: anchors}, nil
}
