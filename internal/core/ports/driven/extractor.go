package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/vision/internal/core/domain"
)

// Extractor turns a document's raw bytes into normalised text plus
// positional anchors. One implementation exists per source type.
type Extractor interface {
	// SourceTypes returns the source types this extractor handles.
	SourceTypes() []domain.SourceType

	// Extract reads the document content from r and produces normalised
	// text with ordered anchors. Extractors that reach the source through
	// an external service (audio transcription) may ignore r and use
	// doc.SourceURI instead. r may be nil in that case.
	//
	// Extraction failure is terminal for the job; retry policy belongs
	// to the orchestrator, not the extractor.
	Extract(ctx context.Context, doc *domain.Document, r io.Reader) (*domain.Content, error)
}

// ExtractorRegistry selects the extractor for a document's source type.
type ExtractorRegistry interface {
	// Extract dispatches to the registered extractor for doc.SourceType.
	// Returns domain.ErrUnsupportedType when none is registered.
	Extract(ctx context.Context, doc *domain.Document, r io.Reader) (*domain.Content, error)
}

// BlobStore opens the raw bytes behind a registered source URI.
// The upload layer guarantees bytes are durably stored before a job is
// created; this port only reads them back.
type BlobStore interface {
	// Open returns a reader for the URI. The caller closes it.
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}
