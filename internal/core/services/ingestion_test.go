package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vision/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driving"
)

// captureDispatcher records dispatched job IDs.
type captureDispatcher struct {
	ids []string
}

func (d *captureDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.ids = append(d.ids, jobID)
	return nil
}

func (d *captureDispatcher) Close() error { return nil }

func newIngestionFixture(opts ...IngestionOption) (*IngestionService, *memory.Store, *captureDispatcher) {
	store := memory.NewStore()
	dispatcher := &captureDispatcher{}
	svc := NewIngestionService(store.UserStore(), store.DocumentStore(), store.JobStore(), dispatcher, opts...)
	return svc, store, dispatcher
}

func TestSubmitCreatesDocumentJobAndDispatches(t *testing.T) {
	svc, store, dispatcher := newIngestionFixture()
	ctx := context.Background()

	result, err := svc.Submit(ctx, driving.Submission{
		UserID:     "alice",
		Title:      "Quarterly Report",
		SourceType: domain.SourceTypePDF,
		SourceURI:  "file:///reports/q1.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, result.Status)

	doc, err := store.DocumentStore().Get(ctx, "alice", result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Report", doc.Title)
	assert.Equal(t, domain.StatusPending, doc.Status)

	job, err := store.JobStore().Get(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, result.DocumentID, job.DocumentID)
	assert.Equal(t, "alice", job.UserID)

	assert.Equal(t, []string{result.JobID}, dispatcher.ids)
}

func TestSubmitDefaultsTitleToURI(t *testing.T) {
	svc, store, _ := newIngestionFixture()

	result, err := svc.Submit(context.Background(), driving.Submission{
		UserID:     "alice",
		SourceType: domain.SourceTypeText,
		SourceURI:  "file:///notes.txt",
	})
	require.NoError(t, err)

	doc, err := store.DocumentStore().Get(context.Background(), "alice", result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "file:///notes.txt", doc.Title)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newIngestionFixture()
	ctx := context.Background()

	_, err := svc.Submit(ctx, driving.Submission{SourceType: domain.SourceTypeText, SourceURI: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Submit(ctx, driving.Submission{UserID: "alice", SourceType: domain.SourceTypeText})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Submit(ctx, driving.Submission{UserID: "alice", SourceType: "spreadsheet", SourceURI: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateJobRejectsActiveJob(t *testing.T) {
	svc, _, dispatcher := newIngestionFixture()
	ctx := context.Background()

	result, err := svc.Submit(ctx, driving.Submission{
		UserID: "alice", SourceType: domain.SourceTypeText, SourceURI: "file:///a.txt",
	})
	require.NoError(t, err)

	// First job is still pending.
	_, err = svc.CreateJob(ctx, "alice", result.DocumentID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Len(t, dispatcher.ids, 1)
}

func TestCreateJobAfterCompletion(t *testing.T) {
	svc, store, dispatcher := newIngestionFixture()
	ctx := context.Background()

	result, err := svc.Submit(ctx, driving.Submission{
		UserID: "alice", SourceType: domain.SourceTypeText, SourceURI: "file:///a.txt",
	})
	require.NoError(t, err)

	_, err = store.JobStore().Claim(ctx, result.JobID)
	require.NoError(t, err)
	require.NoError(t, store.JobStore().Complete(ctx, result.JobID, nil))

	job, err := svc.CreateJob(ctx, "alice", result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, job.Status)
	assert.Equal(t, []string{result.JobID, job.ID}, dispatcher.ids)

	// Foreign tenants cannot reprocess the document.
	_, err = svc.CreateJob(ctx, "bob", result.DocumentID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRetryFailedJob(t *testing.T) {
	svc, store, dispatcher := newIngestionFixture()
	ctx := context.Background()

	result, err := svc.Submit(ctx, driving.Submission{
		UserID: "alice", SourceType: domain.SourceTypeText, SourceURI: "file:///a.txt",
	})
	require.NoError(t, err)

	_, err = store.JobStore().Claim(ctx, result.JobID)
	require.NoError(t, err)
	require.NoError(t, store.JobStore().Fail(ctx, result.JobID, "boom"))

	require.NoError(t, svc.Retry(ctx, result.JobID))

	job, err := store.JobStore().Get(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, job.Status)
	assert.Empty(t, job.ErrorMessage)
	assert.Len(t, dispatcher.ids, 2)
}

func TestRetryRejectsNonFailedAndExhausted(t *testing.T) {
	svc, store, _ := newIngestionFixture(WithMaxAttempts(2))
	ctx := context.Background()

	result, err := svc.Submit(ctx, driving.Submission{
		UserID: "alice", SourceType: domain.SourceTypeText, SourceURI: "file:///a.txt",
	})
	require.NoError(t, err)

	// Pending jobs cannot be retried.
	assert.ErrorIs(t, svc.Retry(ctx, result.JobID), domain.ErrInvalidInput)

	// Burn the attempt budget.
	for i := 0; i < 2; i++ {
		_, err = store.JobStore().Claim(ctx, result.JobID)
		require.NoError(t, err)
		require.NoError(t, store.JobStore().Fail(ctx, result.JobID, "boom"))
		if i == 0 {
			require.NoError(t, store.JobStore().Reset(ctx, result.JobID))
		}
	}

	assert.ErrorIs(t, svc.Retry(ctx, result.JobID), domain.ErrRetryExhausted)

	assert.ErrorIs(t, svc.Retry(ctx, "missing"), domain.ErrNotFound)
}

func TestDeleteDocumentRequiresTenant(t *testing.T) {
	svc, store, _ := newIngestionFixture()
	ctx := context.Background()

	result, err := svc.Submit(ctx, driving.Submission{
		UserID: "alice", SourceType: domain.SourceTypeText, SourceURI: "file:///a.txt",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteDocument(ctx, "", result.DocumentID), domain.ErrTenantScope)
	require.NoError(t, svc.DeleteDocument(ctx, "alice", result.DocumentID))

	_, err = store.DocumentStore().Get(ctx, "alice", result.DocumentID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := svc.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListDocumentsOrdersByRecency(t *testing.T) {
	svc, _, _ := newIngestionFixture()
	ctx := context.Background()

	first, err := svc.Submit(ctx, driving.Submission{
		UserID: "alice", SourceType: domain.SourceTypeText, SourceURI: "file:///first.txt",
	})
	require.NoError(t, err)

	// Nudge the second submission later.
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Submit(ctx, driving.Submission{
		UserID: "alice", SourceType: domain.SourceTypeText, SourceURI: "file:///second.txt",
	})
	require.NoError(t, err)

	docs, err := svc.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.DocumentID, docs[0].ID)
	assert.Equal(t, first.DocumentID, docs[1].ID)
}
