package domain

import "time"

// Chunk represents an indexed, embeddable unit of document content.
// Chunks are created only by a successful pipeline run and are immutable
// thereafter; a reprocessing run replaces a document's whole chunk set
// atomically.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// UserID is the owning tenant, denormalised so similarity queries
	// never join through documents.
	UserID string

	// DocumentID is the document this chunk was extracted from.
	DocumentID string

	// Index is the zero-based position within the document.
	// (DocumentID, Index) is unique and indices are dense: 0..n-1.
	Index int

	// Text is the chunk content.
	Text string

	// Embedding is the fixed-dimension vector representation.
	Embedding []float32

	// SourceRef carries arbitrary positional metadata (byte offsets,
	// page ranges) as produced by the extractor.
	SourceRef map[string]any

	// PageNumber is the page containing the chunk start, for paged sources.
	PageNumber *int

	// SectionHeading is the nearest enclosing heading, for structured text.
	SectionHeading *string

	// Speaker is the dominant speaker, for transcribed audio.
	Speaker *string

	// StartOffset and EndOffset bound the chunk in content time (seconds),
	// for transcribed audio.
	StartOffset *float64
	EndOffset   *float64

	// CreatedAt is when the chunk was persisted.
	CreatedAt time.Time
}

// Anchor maps a span of extracted text back to its position in the
// original source. Offsets are byte indices into Content.Text.
type Anchor struct {
	// Start and End delimit the anchored span (End exclusive).
	Start int
	End   int

	// Page is the source page number, for paged sources.
	Page *int

	// Section is the enclosing section heading, for structured text.
	Section *string

	// Speaker is the speaker label, for transcribed audio.
	Speaker *string

	// TimeStart and TimeEnd bound the span in seconds from content start,
	// for transcribed audio.
	TimeStart *float64
	TimeEnd   *float64
}

// Content is the extractor output: normalised text plus ordered anchors
// aligned to rune offsets. Anchors never overlap and appear in text order.
type Content struct {
	// Text is the full normalised text.
	Text string

	// Anchors locate pages, sections, speakers and time ranges in Text.
	Anchors []Anchor
}

// Meta carries optional document-level metadata discovered by extraction.
type Meta struct {
	// Title is the extracted title, if the source declares one.
	Title string

	// Description is a short extracted description.
	Description string
}
