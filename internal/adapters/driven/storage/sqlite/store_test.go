package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, userID string) {
	t.Helper()
	require.NoError(t, store.UserStore().Ensure(context.Background(), userID))
}

func seedDocument(t *testing.T, store *Store, userID, docID string) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:         docID,
		UserID:     userID,
		SourceType: domain.SourceTypeText,
		Title:      "Test Document",
		SourceURI:  "file:///tmp/" + docID + ".txt",
		IngestedAt: time.Now().UTC(),
		Status:     domain.StatusPending,
	}
	require.NoError(t, store.DocumentStore().Save(context.Background(), doc))
	return doc
}

func seedJob(t *testing.T, store *Store, userID, docID, jobID string) *domain.Job {
	t.Helper()
	now := time.Now().UTC()
	job := &domain.Job{
		ID:         jobID,
		UserID:     userID,
		DocumentID: docID,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.JobStore().Create(context.Background(), job))
	return job
}

func makeChunk(userID, docID string, index int, text string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:         docID + "-chunk-" + string(rune('a'+index)),
		UserID:     userID,
		DocumentID: docID,
		Index:      index,
		Text:       text,
		Embedding:  embedding,
		SourceRef:  map[string]any{"start_offset": float64(0), "end_offset": float64(len(text))},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestUserStoreEnsureIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UserStore().Ensure(ctx, "alice"))
	require.NoError(t, store.UserStore().Ensure(ctx, "alice"))

	assert.ErrorIs(t, store.UserStore().Ensure(ctx, ""), domain.ErrInvalidInput)
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")

	contentCreated := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		ID:               "doc-1",
		UserID:           "alice",
		SourceType:       domain.SourceTypeMarkdown,
		Title:            "Notes",
		SourceURI:        "file:///notes.md",
		IngestedAt:       time.Now().UTC(),
		ContentCreatedAt: &contentCreated,
		Status:           domain.StatusPending,
	}
	require.NoError(t, store.DocumentStore().Save(ctx, doc))

	got, err := store.DocumentStore().Get(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Notes", got.Title)
	assert.Equal(t, domain.SourceTypeMarkdown, got.SourceType)
	require.NotNil(t, got.ContentCreatedAt)
	assert.True(t, contentCreated.Equal(*got.ContentCreatedAt))
}

func TestDocumentStoreTenantIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedDocument(t, store, "alice", "doc-1")

	_, err := store.DocumentStore().Get(ctx, "bob", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.DocumentStore().Delete(ctx, "bob", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := store.DocumentStore().List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentStoreListOrdersByIngestedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")

	seedDocument(t, store, "alice", "doc-old")
	newer := &domain.Document{
		ID:         "doc-new",
		UserID:     "alice",
		SourceType: domain.SourceTypeText,
		Title:      "Newer",
		SourceURI:  "file:///new.txt",
		IngestedAt: time.Now().UTC().Add(time.Minute),
		Status:     domain.StatusPending,
	}
	require.NoError(t, store.DocumentStore().Save(ctx, newer))

	docs, err := store.DocumentStore().List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-new", docs[0].ID)
}

func TestJobStoreClaimSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")
	seedJob(t, store, "alice", "doc-1", "job-1")

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan *domain.Job, workers)
	losses := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := store.JobStore().Claim(ctx, "job-1")
			if err != nil {
				losses <- err
				return
			}
			wins <- job
		}()
	}
	wg.Wait()
	close(wins)
	close(losses)

	var winners []*domain.Job
	for job := range wins {
		winners = append(winners, job)
	}
	require.Len(t, winners, 1)
	assert.Equal(t, domain.StatusProcessing, winners[0].Status)
	assert.Equal(t, 1, winners[0].Attempts)

	for err := range losses {
		assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
	}

	// The claim mirrors onto the document.
	doc, err := store.DocumentStore().Get(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, doc.Status)
}

func TestJobStoreClaimUnknownJob(t *testing.T) {
	store := newTestStore(t)
	_, err := store.JobStore().Claim(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobStoreCompleteReplacesChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")
	seedJob(t, store, "alice", "doc-1", "job-1")

	_, err := store.JobStore().Claim(ctx, "job-1")
	require.NoError(t, err)

	first := []domain.Chunk{
		makeChunk("alice", "doc-1", 0, "first generation a", []float32{1, 0, 0}),
		makeChunk("alice", "doc-1", 1, "first generation b", []float32{0, 1, 0}),
	}
	require.NoError(t, store.JobStore().Complete(ctx, "job-1", first))

	job, err := store.JobStore().Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)

	doc, err := store.DocumentStore().Get(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)

	// Reprocess: a second job replaces the whole generation.
	seedJob(t, store, "alice", "doc-1", "job-2")
	_, err = store.JobStore().Claim(ctx, "job-2")
	require.NoError(t, err)

	second := []domain.Chunk{
		{
			ID: "gen2-a", UserID: "alice", DocumentID: "doc-1", Index: 0,
			Text: "second generation", Embedding: []float32{0, 0, 1},
			CreatedAt: time.Now().UTC(),
		},
	}
	require.NoError(t, store.JobStore().Complete(ctx, "job-2", second))

	chunks, err := store.ChunkStore().ListByDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "second generation", chunks[0].Text)
	assert.Equal(t, []float32{0, 0, 1}, chunks[0].Embedding)
}

func TestJobStoreCompleteRequiresProcessing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")
	seedJob(t, store, "alice", "doc-1", "job-1")

	err := store.JobStore().Complete(ctx, "job-1", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.JobStore().Complete(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobStoreFailAndReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")
	seedJob(t, store, "alice", "doc-1", "job-1")

	_, err := store.JobStore().Claim(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, store.JobStore().Fail(ctx, "job-1", "embedding service unavailable"))

	job, err := store.JobStore().Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Equal(t, "embedding service unavailable", job.ErrorMessage)

	doc, err := store.DocumentStore().Get(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, doc.Status)

	require.NoError(t, store.JobStore().Reset(ctx, "job-1"))
	job, err = store.JobStore().Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, job.Status)
	assert.Empty(t, job.ErrorMessage)

	// Reset only applies to failed jobs.
	assert.ErrorIs(t, store.JobStore().Reset(ctx, "job-1"), domain.ErrInvalidInput)
}

func TestJobStoreGetActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")

	_, err := store.JobStore().GetActive(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	seedJob(t, store, "alice", "doc-1", "job-1")
	active, err := store.JobStore().GetActive(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", active.ID)

	_, err = store.JobStore().Claim(ctx, "job-1")
	require.NoError(t, err)
	active, err = store.JobStore().GetActive(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, active.Status)

	require.NoError(t, store.JobStore().Complete(ctx, "job-1", nil))
	_, err = store.JobStore().GetActive(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStoreAnchorsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")

	page := 3
	section := "Results"
	speaker := "spk_1"
	start, end := 12.5, 48.0
	chunk := makeChunk("alice", "doc-1", 0, "anchored text", []float32{0.5, 0.5})
	chunk.PageNumber = &page
	chunk.SectionHeading = &section
	chunk.Speaker = &speaker
	chunk.StartOffset = &start
	chunk.EndOffset = &end

	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-1", []domain.Chunk{chunk}))

	chunks, err := store.ChunkStore().ListByDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	got := chunks[0]
	require.NotNil(t, got.PageNumber)
	assert.Equal(t, 3, *got.PageNumber)
	require.NotNil(t, got.SectionHeading)
	assert.Equal(t, "Results", *got.SectionHeading)
	require.NotNil(t, got.Speaker)
	assert.Equal(t, "spk_1", *got.Speaker)
	require.NotNil(t, got.StartOffset)
	assert.Equal(t, 12.5, *got.StartOffset)
	require.NotNil(t, got.EndOffset)
	assert.Equal(t, 48.0, *got.EndOffset)
	assert.Equal(t, float64(13), got.SourceRef["end_offset"])
}

func TestChunkStoreSearchRanksByDistance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")

	chunks := []domain.Chunk{
		makeChunk("alice", "doc-1", 0, "far", []float32{10, 0, 0}),
		makeChunk("alice", "doc-1", 1, "near", []float32{1, 0, 0}),
		makeChunk("alice", "doc-1", 2, "nearest", []float32{0.1, 0, 0}),
	}
	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-1", chunks))

	results, err := store.ChunkStore().Search(ctx, "alice", []float32{0, 0, 0}, 2, driven.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "nearest", results[0].Chunk.Text)
	assert.Equal(t, "near", results[1].Chunk.Text)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestChunkStoreSearchTenantScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedDocument(t, store, "alice", "doc-a")
	seedDocument(t, store, "bob", "doc-b")

	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-a",
		[]domain.Chunk{makeChunk("alice", "doc-a", 0, "alice data", []float32{1, 1})}))
	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-b",
		[]domain.Chunk{makeChunk("bob", "doc-b", 0, "bob data", []float32{1, 1})}))

	results, err := store.ChunkStore().Search(ctx, "alice", []float32{1, 1}, 10, driven.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice data", results[0].Chunk.Text)

	// Empty tenant fails closed.
	_, err = store.ChunkStore().Search(ctx, "", []float32{1, 1}, 10, driven.ChunkFilter{})
	assert.ErrorIs(t, err, domain.ErrTenantScope)
}

func TestChunkStoreSearchFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")
	seedDocument(t, store, "alice", "doc-2")

	old := makeChunk("alice", "doc-1", 0, "old chunk", []float32{1, 0})
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-1", []domain.Chunk{old}))
	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-2",
		[]domain.Chunk{makeChunk("alice", "doc-2", 0, "new chunk", []float32{1, 0})}))

	byDoc, err := store.ChunkStore().Search(ctx, "alice", []float32{1, 0}, 10,
		driven.ChunkFilter{DocumentIDs: []string{"doc-1"}})
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.Equal(t, "old chunk", byDoc[0].Chunk.Text)

	cutoff := time.Now().UTC().Add(-time.Hour)
	recent, err := store.ChunkStore().Search(ctx, "alice", []float32{1, 0}, 10,
		driven.ChunkFilter{CreatedAfter: &cutoff})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new chunk", recent[0].Chunk.Text)
}

func TestChunkStoreSearchSkipsMismatchedDimensions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")

	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-1", []domain.Chunk{
		makeChunk("alice", "doc-1", 0, "two dims", []float32{1, 0}),
		makeChunk("alice", "doc-1", 1, "three dims", []float32{1, 0, 0}),
	}))

	results, err := store.ChunkStore().Search(ctx, "alice", []float32{0, 0}, 10, driven.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two dims", results[0].Chunk.Text)
}

func TestDocumentDeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")
	seedDocument(t, store, "alice", "doc-1")
	seedJob(t, store, "alice", "doc-1", "job-1")
	require.NoError(t, store.ChunkStore().Replace(ctx, "doc-1",
		[]domain.Chunk{makeChunk("alice", "doc-1", 0, "to be deleted", []float32{1})}))

	require.NoError(t, store.DocumentStore().Delete(ctx, "alice", "doc-1"))

	_, err := store.JobStore().Get(ctx, "job-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.ChunkStore().ListByDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestEmbeddingBlobRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 3.14159, 0}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
