// Package memory provides in-memory implementations of the driven storage
// ports, mirroring the transactional semantics of the SQLite adapter. It is
// used by service tests and as a throwaway backend for experiments.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

// Store holds all entities behind a single mutex so multi-entity operations
// (claim, complete) stay atomic, like their SQLite counterparts.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	documents map[string]domain.Document
	jobs      map[string]domain.Job
	chunks    map[string][]domain.Chunk // keyed by document ID
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		documents: make(map[string]domain.Document),
		jobs:      make(map[string]domain.Job),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// UserStore returns a UserStore interface backed by this store.
func (s *Store) UserStore() driven.UserStore {
	return &userStore{store: s}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// JobStore returns a JobStore interface backed by this store.
func (s *Store) JobStore() driven.JobStore {
	return &jobStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// ==================== User Store ====================

type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

func (s *userStore) Ensure(_ context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.users[userID]; !ok {
		s.store.users[userID] = domain.User{ID: userID, CreatedAt: time.Now().UTC()}
	}
	return nil
}

// ==================== Document Store ====================

type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

func (s *documentStore) Save(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" || doc.UserID == "" {
		return domain.ErrInvalidInput
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.documents[doc.ID] = *doc
	return nil
}

func (s *documentStore) Get(_ context.Context, userID, id string) (*domain.Document, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	doc, ok := s.store.documents[id]
	if !ok || doc.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (s *documentStore) List(_ context.Context, userID string) ([]domain.Document, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range s.store.documents {
		if doc.UserID == userID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].IngestedAt.After(docs[j].IngestedAt)
	})
	return docs, nil
}

func (s *documentStore) Delete(_ context.Context, userID, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	doc, ok := s.store.documents[id]
	if !ok || doc.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.store.documents, id)
	delete(s.store.chunks, id)
	for jobID, job := range s.store.jobs {
		if job.DocumentID == id {
			delete(s.store.jobs, jobID)
		}
	}
	return nil
}

// ==================== Job Store ====================

type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

func (s *jobStore) Create(_ context.Context, job *domain.Job) error {
	if job.ID == "" || job.UserID == "" || job.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.jobs[job.ID] = *job
	return nil
}

func (s *jobStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	job, ok := s.store.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (s *jobStore) GetActive(_ context.Context, documentID string) (*domain.Job, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	var latest *domain.Job
	for id := range s.store.jobs {
		job := s.store.jobs[id]
		if job.DocumentID != documentID || !job.Active() {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = &job
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (s *jobStore) Claim(_ context.Context, id string) (*domain.Job, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	job, ok := s.store.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyClaimed
	}
	job.Status = domain.StatusProcessing
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	s.store.jobs[id] = job
	s.mirrorDocumentStatus(job.DocumentID, domain.StatusProcessing)
	return &job, nil
}

func (s *jobStore) Complete(_ context.Context, id string, chunks []domain.Chunk) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	job, ok := s.store.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.StatusProcessing {
		return fmt.Errorf("completing job in status %q: %w", job.Status, domain.ErrInvalidInput)
	}
	s.store.chunks[job.DocumentID] = append([]domain.Chunk(nil), chunks...)
	job.Status = domain.StatusCompleted
	job.ErrorMessage = ""
	job.UpdatedAt = time.Now().UTC()
	s.store.jobs[id] = job
	s.mirrorDocumentStatus(job.DocumentID, domain.StatusCompleted)
	return nil
}

func (s *jobStore) Fail(_ context.Context, id string, errMsg string) error {
	return s.transition(id, domain.StatusProcessing, domain.StatusFailed, errMsg)
}

func (s *jobStore) Reset(_ context.Context, id string) error {
	return s.transition(id, domain.StatusFailed, domain.StatusPending, "")
}

func (s *jobStore) transition(id string, from, to domain.Status, errMsg string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	job, ok := s.store.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != from {
		return fmt.Errorf("job is not %s: %w", from, domain.ErrInvalidInput)
	}
	job.Status = to
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now().UTC()
	s.store.jobs[id] = job
	s.mirrorDocumentStatus(job.DocumentID, to)
	return nil
}

// mirrorDocumentStatus projects a job transition onto the document.
// Callers must hold the write lock.
func (s *jobStore) mirrorDocumentStatus(documentID string, status domain.Status) {
	if doc, ok := s.store.documents[documentID]; ok {
		doc.Status = status
		s.store.documents[documentID] = doc
	}
}

// ==================== Chunk Store ====================

type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

func (s *chunkStore) Replace(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.chunks[documentID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

func (s *chunkStore) ListByDocument(_ context.Context, userID, documentID string) ([]domain.Chunk, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	var chunks []domain.Chunk
	for _, chunk := range s.store.chunks[documentID] {
		if chunk.UserID == userID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

func (s *chunkStore) Search(_ context.Context, userID string, embedding []float32, k int, filter driven.ChunkFilter) ([]domain.RetrievedChunk, error) {
	if userID == "" {
		return nil, domain.ErrTenantScope
	}
	if len(embedding) == 0 || k <= 0 {
		return nil, domain.ErrInvalidInput
	}

	allowed := make(map[string]bool, len(filter.DocumentIDs))
	for _, id := range filter.DocumentIDs {
		allowed[id] = true
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var results []domain.RetrievedChunk
	for docID, chunks := range s.store.chunks {
		if len(allowed) > 0 && !allowed[docID] {
			continue
		}
		for _, chunk := range chunks {
			if chunk.UserID != userID || len(chunk.Embedding) != len(embedding) {
				continue
			}
			if filter.CreatedAfter != nil && !chunk.CreatedAt.After(*filter.CreatedAfter) {
				continue
			}
			results = append(results, domain.RetrievedChunk{
				Chunk:    chunk,
				Distance: euclideanDistance(embedding, chunk.Embedding),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
