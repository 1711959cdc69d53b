package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/vision/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.vision/data/vision.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vision", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vision.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
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

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== User Store ====================

// userStore implements driven.UserStore.
type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

// Ensure creates the user if it does not already exist.
func (s *userStore) Ensure(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, userID, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("ensuring user: %w", err)
	}
	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Save stores a new document.
func (s *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" || doc.UserID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, user_id, source_type, title, source_uri, ingested_at, content_created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.UserID, string(doc.SourceType), doc.Title, doc.SourceURI,
		doc.IngestedAt, nullTime(doc.ContentCreatedAt), string(doc.Status))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document scoped to its owner.
func (s *documentStore) Get(ctx context.Context, userID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, source_type, title, source_uri, ingested_at, content_created_at, status
		FROM documents WHERE id = ? AND user_id = ?
	`, id, userID)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// List returns all documents for a tenant, most recently ingested first.
func (s *documentStore) List(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, user_id, source_type, title, source_uri, ingested_at, content_created_at, status
		FROM documents WHERE user_id = ?
		ORDER BY ingested_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// Delete removes a document and cascades to its jobs and chunks.
func (s *documentStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Job Store ====================

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

// Create stores a new pending job.
func (s *jobStore) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == "" || job.UserID == "" || job.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (id, user_id, document_id, status, error_message, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.UserID, job.DocumentID, string(job.Status),
		nullString(job.ErrorMessage), job.Attempts, job.CreatedAt, job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *jobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, status, error_message, attempts, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// GetActive returns the active (pending or processing) job for a document.
func (s *jobStore) GetActive(ctx context.Context, documentID string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, status, error_message, attempts, created_at, updated_at
		FROM jobs
		WHERE document_id = ? AND status IN ('pending', 'processing')
		ORDER BY created_at DESC
		LIMIT 1
	`, documentID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// Claim atomically flips a pending job to processing. The conditional
// UPDATE is the arbiter: exactly one concurrent caller sees a row change.
func (s *jobStore) Claim(ctx context.Context, id string) (*domain.Job, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'processing', attempts = attempts + 1, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, now, id)
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking claim result: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM jobs WHERE id = ?", id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking job existence: %w", err)
		}
		if exists == 0 {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrAlreadyClaimed
	}

	job, err := scanJob(tx.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, status, error_message, attempts, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET status = 'processing' WHERE id = ?", job.DocumentID); err != nil {
		return nil, fmt.Errorf("mirroring document status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return job, nil
}

// Complete replaces the document's chunk set and finishes the job in one
// transaction, so search never observes chunks from an unfinished job or a
// mix of old and new generations.
func (s *jobStore) Complete(ctx context.Context, id string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	job, err := scanJob(tx.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, status, error_message, attempts, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if job.Status != domain.StatusProcessing {
		return fmt.Errorf("completing job in status %q: %w", job.Status, domain.ErrInvalidInput)
	}

	if err := replaceChunksTx(ctx, tx, job.DocumentID, chunks); err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'completed', error_message = NULL, updated_at = ?
		WHERE id = ?
	`, now, id); err != nil {
		return fmt.Errorf("completing job: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET status = 'completed' WHERE id = ?", job.DocumentID); err != nil {
		return fmt.Errorf("mirroring document status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Fail transitions processing -> failed and records the error message.
func (s *jobStore) Fail(ctx context.Context, id string, errMsg string) error {
	return s.transition(ctx, id, domain.StatusProcessing, domain.StatusFailed, errMsg)
}

// Reset transitions failed -> pending for an explicit retry.
func (s *jobStore) Reset(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.StatusFailed, domain.StatusPending, "")
}

// transition moves a job from one status to another and mirrors the
// document status, atomically. The job must currently be in from.
func (s *jobStore) transition(ctx context.Context, id string, from, to domain.Status, errMsg string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), nullString(errMsg), now, id, string(from))
	if err != nil {
		return fmt.Errorf("updating job status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM jobs WHERE id = ?", id).Scan(&exists); err != nil {
			return fmt.Errorf("checking job existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return fmt.Errorf("job is not %s: %w", from, domain.ErrInvalidInput)
	}

	var documentID string
	if err := tx.QueryRowContext(ctx,
		"SELECT document_id FROM jobs WHERE id = ?", id).Scan(&documentID); err != nil {
		return fmt.Errorf("reading job document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET status = ? WHERE id = ?", string(to), documentID); err != nil {
		return fmt.Errorf("mirroring document status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// Replace atomically swaps the document's chunk set.
func (s *chunkStore) Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := replaceChunksTx(ctx, tx, documentID, chunks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListByDocument returns a document's chunks ordered by index.
func (s *chunkStore) ListByDocument(ctx context.Context, userID, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, user_id, document_id, chunk_index, content, embedding, source_ref,
			page_number, section_heading, speaker, start_offset, end_offset, created_at
		FROM chunks
		WHERE user_id = ? AND document_id = ?
		ORDER BY chunk_index
	`, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Search returns the k nearest chunks by Euclidean distance, scoped to the
// tenant. An empty userID fails closed rather than searching everything.
func (s *chunkStore) Search(ctx context.Context, userID string, embedding []float32, k int, filter driven.ChunkFilter) ([]domain.RetrievedChunk, error) {
	if userID == "" {
		return nil, domain.ErrTenantScope
	}
	if len(embedding) == 0 || k <= 0 {
		return nil, domain.ErrInvalidInput
	}

	query := `
		SELECT id, user_id, document_id, chunk_index, content, embedding, source_ref,
			page_number, section_heading, speaker, start_offset, end_offset, created_at
		FROM chunks
		WHERE user_id = ? AND embedding IS NOT NULL`
	args := []any{userID}

	if len(filter.DocumentIDs) > 0 {
		query += " AND document_id IN (?" + strings.Repeat(", ?", len(filter.DocumentIDs)-1) + ")"
		for _, id := range filter.DocumentIDs {
			args = append(args, id)
		}
	}
	if filter.CreatedAfter != nil {
		query += " AND created_at > ?"
		args = append(args, filter.CreatedAfter.UTC())
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.RetrievedChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if len(chunk.Embedding) != len(embedding) {
			continue // dimension mismatch, written by another model
		}
		results = append(results, domain.RetrievedChunk{
			Chunk:    *chunk,
			Distance: euclideanDistance(embedding, chunk.Embedding),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
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

// replaceChunksTx removes a document's existing chunks and inserts the new
// generation inside the caller's transaction.
func replaceChunksTx(ctx context.Context, tx *sql.Tx, documentID string, chunks []domain.Chunk) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting previous chunks: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks
			(id, user_id, document_id, chunk_index, content, embedding, source_ref,
			page_number, section_heading, speaker, start_offset, end_offset, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		sourceRefJSON, err := json.Marshal(chunk.SourceRef)
		if err != nil {
			return fmt.Errorf("marshalling source ref: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.UserID, documentID, chunk.Index, chunk.Text,
			float32SliceToBytes(chunk.Embedding), string(sourceRefJSON),
			nullInt(chunk.PageNumber), nullStringPtr(chunk.SectionHeading),
			nullStringPtr(chunk.Speaker), nullFloat(chunk.StartOffset),
			nullFloat(chunk.EndOffset), chunk.CreatedAt); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", chunk.Index, err)
		}
	}

	return nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a document row. Callers translate sql.ErrNoRows.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var sourceType, status string
	var contentCreatedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.UserID, &sourceType, &doc.Title, &doc.SourceURI,
		&doc.IngestedAt, &contentCreatedAt, &status); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.SourceType = domain.SourceType(sourceType)
	doc.Status = domain.Status(status)
	if contentCreatedAt.Valid {
		t := contentCreatedAt.Time
		doc.ContentCreatedAt = &t
	}

	return &doc, nil
}

// scanJob scans a job row. Callers translate sql.ErrNoRows.
func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var status string
	var errorMessage sql.NullString

	if err := row.Scan(&job.ID, &job.UserID, &job.DocumentID, &status,
		&errorMessage, &job.Attempts, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.Status = domain.Status(status)
	job.ErrorMessage = errorMessage.String

	return &job, nil
}

// scanChunk scans a chunk row.
func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var sourceRefJSON string
	var pageNumber sql.NullInt64
	var sectionHeading, speaker sql.NullString
	var startOffset, endOffset sql.NullFloat64

	if err := row.Scan(&chunk.ID, &chunk.UserID, &chunk.DocumentID, &chunk.Index,
		&chunk.Text, &embeddingBlob, &sourceRefJSON, &pageNumber, &sectionHeading,
		&speaker, &startOffset, &endOffset, &chunk.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if sourceRefJSON != "" {
		if err := json.Unmarshal([]byte(sourceRefJSON), &chunk.SourceRef); err != nil {
			return nil, fmt.Errorf("unmarshaling source ref: %w", err)
		}
	}

	if pageNumber.Valid {
		p := int(pageNumber.Int64)
		chunk.PageNumber = &p
	}
	if sectionHeading.Valid {
		chunk.SectionHeading = &sectionHeading.String
	}
	if speaker.Valid {
		chunk.Speaker = &speaker.String
	}
	if startOffset.Valid {
		chunk.StartOffset = &startOffset.Float64
	}
	if endOffset.Valid {
		chunk.EndOffset = &endOffset.Float64
	}

	return &chunk, nil
}

// euclideanDistance computes the L2 distance between two equal-length vectors.
func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
