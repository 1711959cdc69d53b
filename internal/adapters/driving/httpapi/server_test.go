package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vision/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/core/services"
)

type captureDispatcher struct {
	jobIDs []string
}

func (d *captureDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.jobIDs = append(d.jobIDs, jobID)
	return nil
}

func (d *captureDispatcher) Close() error { return nil }

type fixedEmbedder struct {
	vec []float32
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return e.vec, nil
}

func (e *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int   { return len(e.vec) }
func (e *fixedEmbedder) ModelName() string { return "fixed" }
func (e *fixedEmbedder) Close() error      { return nil }

type stubLLM struct {
	answer string
}

func (l *stubLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return l.answer, nil
}

func (l *stubLLM) ModelName() string { return "stub" }
func (l *stubLLM) Close() error      { return nil }

type apiFixture struct {
	server     *Server
	store      *memory.Store
	dispatcher *captureDispatcher
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	dispatcher := &captureDispatcher{}

	ingestion := services.NewIngestionService(
		store.UserStore(), store.DocumentStore(), store.JobStore(), dispatcher,
	)
	query := services.NewQueryEngine(
		store.ChunkStore(),
		&fixedEmbedder{vec: []float32{1, 0, 0}},
		&stubLLM{answer: "Grounded answer [1]."},
	)

	return &apiFixture{
		server:     NewServer(ingestion, query),
		store:      store,
		dispatcher: dispatcher,
	}
}

func (f *apiFixture) do(t *testing.T, method, target, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, rec))
}

func TestSubmitCreatesDocumentAndJob(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		Title:      "Notes",
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[submitResponse](t, rec)
	assert.NotEmpty(t, resp.DocumentID)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, []string{resp.JobID}, f.dispatcher.jobIDs)
}

func TestSubmitRequiresTenantHeader(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submit", "", submitRequest{
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitRejectsUnknownSourceType(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		SourceType: "spreadsheet",
		SourceURI:  "/tmp/sheet.xlsx",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobScopedToTenant(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	sub := decode[submitResponse](t, rec)

	rec = f.do(t, http.MethodGet, "/jobs/"+sub.JobID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[jobResponse](t, rec)
	assert.Equal(t, sub.DocumentID, job.DocumentID)
	assert.Equal(t, "pending", job.Status)

	// Another tenant sees a 404, not a 403, so job IDs leak nothing.
	rec = f.do(t, http.MethodGet, "/jobs/"+sub.JobID, "mallory", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/jobs/nope", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetryFailedJob(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	sub := decode[submitResponse](t, rec)

	ctx := context.Background()
	_, err := f.store.JobStore().Claim(ctx, sub.JobID)
	require.NoError(t, err)
	require.NoError(t, f.store.JobStore().Fail(ctx, sub.JobID, "extractor blew up"))

	rec = f.do(t, http.MethodPost, "/jobs/"+sub.JobID+"/retry", "alice", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/jobs/"+sub.JobID, "alice", nil)
	job := decode[jobResponse](t, rec)
	assert.Equal(t, "pending", job.Status)
}

func TestRetryPendingJobRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})
	sub := decode[submitResponse](t, rec)

	rec = f.do(t, http.MethodPost, "/jobs/"+sub.JobID+"/retry", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryReturnsAnswerWithCitations(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})
	sub := decode[submitResponse](t, rec)

	require.NoError(t, f.store.ChunkStore().Replace(ctx, sub.DocumentID, []domain.Chunk{{
		ID:         "c1",
		UserID:     "alice",
		DocumentID: sub.DocumentID,
		Index:      0,
		Text:       "The launch window opens in March.",
		Embedding:  []float32{1, 0, 0},
		CreatedAt:  time.Now().UTC(),
	}}))

	rec = f.do(t, http.MethodPost, "/query", "alice", queryRequest{Query: "when is the launch?"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[queryResponse](t, rec)
	assert.Equal(t, "Grounded answer [1].", resp.Answer)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "[1]", resp.Citations[0].Marker)
	assert.Equal(t, sub.DocumentID, resp.Citations[0].DocumentID)
}

func TestQueryWithNoChunks(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/query", "alice", queryRequest{Query: "anything?"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[queryResponse](t, rec)
	assert.Equal(t, "No relevant information found.", resp.Answer)
	assert.Empty(t, resp.Citations)
}

func TestQueryEmptyQueryRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/query", "alice", queryRequest{Query: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndDeleteDocuments(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		Title:      "Notes",
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})
	sub := decode[submitResponse](t, rec)

	rec = f.do(t, http.MethodGet, "/documents", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decode[[]documentResponse](t, rec)
	require.Len(t, docs, 1)
	assert.Equal(t, "Notes", docs[0].Title)

	// Other tenants see an empty list.
	rec = f.do(t, http.MethodGet, "/documents", "bob", nil)
	assert.Empty(t, decode[[]documentResponse](t, rec))

	// Deletes are tenant-scoped.
	rec = f.do(t, http.MethodDelete, "/documents/"+sub.DocumentID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/documents/"+sub.DocumentID, "alice", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/documents", "alice", nil)
	assert.Empty(t, decode[[]documentResponse](t, rec))
}

func TestReprocessCreatesNewJob(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/ingest/submit", "alice", submitRequest{
		SourceType: "text",
		SourceURI:  "/tmp/notes.txt",
	})
	sub := decode[submitResponse](t, rec)

	// Active job blocks reprocessing.
	rec = f.do(t, http.MethodPost, "/documents/"+sub.DocumentID+"/reprocess", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := f.store.JobStore().Claim(ctx, sub.JobID)
	require.NoError(t, err)
	require.NoError(t, f.store.JobStore().Complete(ctx, sub.JobID, nil))

	rec = f.do(t, http.MethodPost, "/documents/"+sub.DocumentID+"/reprocess", "alice", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decode[jobResponse](t, rec)
	assert.Equal(t, sub.DocumentID, job.DocumentID)
	assert.NotEqual(t, sub.JobID, job.ID)
	assert.Equal(t, []string{sub.JobID, job.ID}, f.dispatcher.jobIDs)
}
