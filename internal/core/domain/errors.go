package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyClaimed indicates another worker won the claim on a job.
	// This is a benign concurrency outcome, not a user-visible error.
	ErrAlreadyClaimed = errors.New("job already claimed")

	// ErrTenantScope indicates a store query arrived without a tenant scope
	// or with a mismatched one. Such queries fail closed.
	ErrTenantScope = errors.New("missing or mismatched tenant scope")

	// ErrExtraction indicates the source could not be read or decoded.
	ErrExtraction = errors.New("extraction failed")

	// ErrChunking indicates degenerate input defeated the chunker.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbeddingService indicates the external embedding call failed
	// or timed out.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrGenerationUnavailable indicates answer synthesis failed.
	// No partial answer is returned alongside this error.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrUnsupportedType indicates no extractor handles the source type.
	ErrUnsupportedType = errors.New("unsupported source type")

	// ErrRetryExhausted indicates a job failed after its bounded retries.
	ErrRetryExhausted = errors.New("retry budget exhausted")
)
