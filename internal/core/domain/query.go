package domain

import "time"

// QueryOptions configures retrieval for a query.
type QueryOptions struct {
	// TopK is the number of chunks to retrieve (default set by the engine).
	TopK int

	// DocumentIDs restricts retrieval to specific documents.
	DocumentIDs []string

	// CreatedAfter restricts retrieval to chunks created after this time.
	// Populated by explicit filters or by temporal phrases in the query.
	CreatedAfter *time.Time
}

// RetrievedChunk is a chunk returned from similarity search together
// with its distance from the query vector.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Distance is the Euclidean distance to the query embedding.
	// Smaller is closer.
	Distance float64
}

// Citation links a claim in a generated answer back to a source chunk.
type Citation struct {
	// Marker is the token used in the answer text, e.g. "[1]".
	Marker string

	// DocumentID is the source document.
	DocumentID string

	// Snippet is a short excerpt of the cited chunk.
	Snippet string

	// PageNumber is the source page, if the chunk has one.
	PageNumber *int

	// Score is the similarity score of the cited chunk (higher is closer).
	Score float64
}

// Answer is a generated response grounded in retrieved chunks.
type Answer struct {
	// Text is the model's answer, containing citation markers.
	Text string

	// Citations resolves the markers the model actually used.
	// Empty when retrieval found nothing or the model cited nothing.
	Citations []Citation
}
