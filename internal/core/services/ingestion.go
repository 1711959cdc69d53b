package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/core/ports/driving"
	"github.com/custodia-labs/vision/internal/logger"
)

// DefaultMaxAttempts bounds how often a job can be retried before Retry
// refuses with domain.ErrRetryExhausted.
const DefaultMaxAttempts = 3

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService registers documents, creates their jobs and hands them
// to the dispatcher. Processing itself happens in the Pipeline.
type IngestionService struct {
	userStore   driven.UserStore
	docStore    driven.DocumentStore
	jobStore    driven.JobStore
	dispatcher  driven.Dispatcher
	maxAttempts int
}

// IngestionOption configures the ingestion service.
type IngestionOption func(*IngestionService)

// WithMaxAttempts sets the retry budget per job.
func WithMaxAttempts(n int) IngestionOption {
	return func(s *IngestionService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(
	userStore driven.UserStore,
	docStore driven.DocumentStore,
	jobStore driven.JobStore,
	dispatcher driven.Dispatcher,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		userStore:   userStore,
		docStore:    docStore,
		jobStore:    jobStore,
		dispatcher:  dispatcher,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit registers a document, creates its first pending job and dispatches it.
// The source bytes must already be durably stored at sub.SourceURI.
func (s *IngestionService) Submit(ctx context.Context, sub driving.Submission) (*driving.SubmitResult, error) {
	if sub.UserID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(sub.SourceURI) == "" {
		return nil, fmt.Errorf("source uri is required: %w", domain.ErrInvalidInput)
	}
	if !sub.SourceType.Valid() {
		return nil, fmt.Errorf("unknown source type %q: %w", sub.SourceType, domain.ErrInvalidInput)
	}

	if err := s.userStore.Ensure(ctx, sub.UserID); err != nil {
		return nil, fmt.Errorf("ensuring user: %w", err)
	}

	title := strings.TrimSpace(sub.Title)
	if title == "" {
		title = sub.SourceURI
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         uuid.New().String(),
		UserID:     sub.UserID,
		SourceType: sub.SourceType,
		Title:      title,
		SourceURI:  sub.SourceURI,
		IngestedAt: now,
		Status:     domain.StatusPending,
	}
	if err := s.docStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	job, err := s.createAndDispatch(ctx, sub.UserID, doc.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("Submitted document %s (job %s) for user %s", doc.ID, job.ID, sub.UserID)
	return &driving.SubmitResult{
		DocumentID: doc.ID,
		JobID:      job.ID,
		Status:     job.Status,
	}, nil
}

// CreateJob creates and dispatches a reprocessing job for an existing
// document. At most one active job per document is allowed.
func (s *IngestionService) CreateJob(ctx context.Context, userID, documentID string) (*domain.Job, error) {
	if _, err := s.docStore.Get(ctx, userID, documentID); err != nil {
		return nil, err
	}

	if active, err := s.jobStore.GetActive(ctx, documentID); err == nil {
		return nil, fmt.Errorf("document already has active job %s: %w", active.ID, domain.ErrInvalidInput)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checking active job: %w", err)
	}

	return s.createAndDispatch(ctx, userID, documentID)
}

// GetJob returns a job by ID.
func (s *IngestionService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobStore.Get(ctx, jobID)
}

// Retry re-dispatches a failed job, bounded by the attempt budget.
func (s *IngestionService) Retry(ctx context.Context, jobID string) error {
	job, err := s.jobStore.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.StatusFailed {
		return fmt.Errorf("job %s is %s, only failed jobs can be retried: %w",
			jobID, job.Status, domain.ErrInvalidInput)
	}
	if job.Attempts >= s.maxAttempts {
		return fmt.Errorf("job %s used %d of %d attempts: %w",
			jobID, job.Attempts, s.maxAttempts, domain.ErrRetryExhausted)
	}

	if err := s.jobStore.Reset(ctx, jobID); err != nil {
		return fmt.Errorf("resetting job: %w", err)
	}
	if err := s.dispatcher.Dispatch(ctx, jobID); err != nil {
		return fmt.Errorf("dispatching job: %w", err)
	}

	logger.Info("Retrying job %s (attempt %d of %d)", jobID, job.Attempts+1, s.maxAttempts)
	return nil
}

// ListDocuments returns a tenant's documents.
func (s *IngestionService) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	if userID == "" {
		return nil, domain.ErrTenantScope
	}
	return s.docStore.List(ctx, userID)
}

// DeleteDocument removes a document and everything hanging off it.
func (s *IngestionService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	if userID == "" {
		return domain.ErrTenantScope
	}
	if err := s.docStore.Delete(ctx, userID, documentID); err != nil {
		return err
	}
	logger.Info("Deleted document %s for user %s", documentID, userID)
	return nil
}

func (s *IngestionService) createAndDispatch(ctx context.Context, userID, documentID string) (*domain.Job, error) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:         uuid.New().String(),
		UserID:     userID,
		DocumentID: documentID,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.jobStore.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	if err := s.dispatcher.Dispatch(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("dispatching job: %w", err)
	}
	return job, nil
}
