package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/vision/internal/core/domain"
)

// UserStore persists tenants.
type UserStore interface {
	// Ensure creates the user if it does not already exist.
	Ensure(ctx context.Context, userID string) error
}

// DocumentStore persists registered documents.
// Document status is never written through this interface; it mirrors the
// latest job and is updated by JobStore transitions.
type DocumentStore interface {
	// Save stores a new document.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document scoped to its owner.
	// Returns domain.ErrNotFound for unknown or foreign documents.
	Get(ctx context.Context, userID, id string) (*domain.Document, error)

	// List returns all documents for a tenant, most recently ingested first.
	List(ctx context.Context, userID string) ([]domain.Document, error)

	// Delete removes a document and cascades to its jobs and chunks.
	Delete(ctx context.Context, userID, id string) error
}

// JobStore persists jobs and owns every state-machine transition.
// Each transition also writes the mirrored document status in the same
// database transaction, so job and document can never drift.
type JobStore interface {
	// Create stores a new pending job.
	Create(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if unknown.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// GetActive returns the active (pending or processing) job for a
	// document, or domain.ErrNotFound when none exists.
	GetActive(ctx context.Context, documentID string) (*domain.Job, error)

	// Claim atomically flips a pending job to processing and increments
	// its attempt count. Exactly one concurrent caller wins; the rest get
	// domain.ErrAlreadyClaimed. Unknown jobs get domain.ErrNotFound.
	Claim(ctx context.Context, id string) (*domain.Job, error)

	// Complete atomically replaces the document's chunk set with the
	// given chunks, transitions the job processing -> completed and
	// mirrors the document status, all in one transaction. Readers never
	// observe the new chunks before the job is completed, nor a mix of
	// old and new generations.
	Complete(ctx context.Context, id string, chunks []domain.Chunk) error

	// Fail transitions processing -> failed, records the error message
	// and mirrors the document status, atomically with the transition.
	Fail(ctx context.Context, id string, errMsg string) error

	// Reset transitions failed -> pending for an explicit retry.
	// Returns domain.ErrInvalidInput if the job is not failed.
	Reset(ctx context.Context, id string) error
}

// ChunkFilter narrows a similarity search beyond the mandatory tenant scope.
type ChunkFilter struct {
	// DocumentIDs restricts results to specific documents when non-empty.
	DocumentIDs []string

	// CreatedAfter restricts results to chunks created after this time.
	CreatedAfter *time.Time
}

// ChunkStore persists chunks and serves tenant-scoped similarity search.
type ChunkStore interface {
	// Replace atomically swaps the document's chunk set: previously stored
	// chunks are removed and the new set inserted in one transaction, so
	// readers never observe a mixed or partial generation.
	Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// ListByDocument returns a document's chunks ordered by index.
	ListByDocument(ctx context.Context, userID, documentID string) ([]domain.Chunk, error)

	// Search returns the k nearest chunks to the embedding by Euclidean
	// distance, ascending. userID is mandatory; an empty userID fails
	// closed with domain.ErrTenantScope.
	Search(ctx context.Context, userID string, embedding []float32, k int, filter ChunkFilter) ([]domain.RetrievedChunk, error)
}
