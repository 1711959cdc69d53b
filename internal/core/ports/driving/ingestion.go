package driving

import (
	"context"

	"github.com/custodia-labs/vision/internal/core/domain"
)

// Submission registers a document for ingestion.
type Submission struct {
	// UserID is the owning tenant.
	UserID string

	// Title is the human-readable document title.
	Title string

	// SourceType selects the extractor.
	SourceType domain.SourceType

	// SourceURI is where the durably-stored bytes live.
	SourceURI string
}

// SubmitResult identifies the registered document and its first job.
type SubmitResult struct {
	DocumentID string
	JobID      string
	Status     domain.Status
}

// IngestionService registers documents and manages their jobs.
type IngestionService interface {
	// Submit registers a document, creates its pending job and dispatches
	// it for processing.
	Submit(ctx context.Context, sub Submission) (*SubmitResult, error)

	// CreateJob creates and dispatches a new job for an existing document,
	// e.g. to reprocess it. Rejected while the document has an active job.
	CreateJob(ctx context.Context, userID, documentID string) (*domain.Job, error)

	// GetJob returns a job's status, error message and timestamps.
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	// Retry re-dispatches a failed job (failed -> pending), bounded by the
	// configured attempt budget.
	Retry(ctx context.Context, jobID string) error

	// ListDocuments returns a tenant's documents.
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)

	// DeleteDocument removes a document, cascading to jobs and chunks.
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

// JobRunner processes one job end to end. It is the handler the queue
// adapter invokes for each delivery and must be safe under redelivery.
type JobRunner interface {
	// Run claims the job, extracts, chunks, embeds and atomically replaces
	// the document's chunks, then marks the job completed or failed.
	Run(ctx context.Context, jobID string) error
}
