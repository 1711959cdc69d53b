// Package markdown extracts markdown documents, detecting section
// headings from structural markers.
package markdown

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// headingPattern matches ATX headings at the start of a line.
var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*#*\s*$`)

// Extractor handles markdown documents.
type Extractor struct{}

// New creates a new markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// SourceTypes returns the source types this extractor handles.
func (e *Extractor) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeMarkdown}
}

// Extract passes the markdown through and anchors each heading-delimited
// section with its heading text. Content before the first heading is
// anchored without a section.
func (e *Extractor) Extract(_ context.Context, _ *domain.Document, r io.Reader) (*domain.Content, error) {
	if r == nil {
		return nil, domain.ErrInvalidInput
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	text := string(data)

	headings := headingPattern.FindAllStringSubmatchIndex(text, -1)

	var anchors []domain.Anchor
	if len(headings) == 0 || headings[0][0] > 0 {
		end := len(text)
		if len(headings) > 0 {
			end = headings[0][0]
		}
		if strings.TrimSpace(text[:end]) != "" {
			anchors = append(anchors, domain.Anchor{Start: 0, End: end})
		}
	}

	for i, h := range headings {
		heading := text[h[4]:h[5]]
		start := h[0]
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		section := heading
		anchors = append(anchors, domain.Anchor{Start: start, End: end, Section: &section})
	}

	return &domain.Content{Text: text, Anchors: anchors}, nil
}
