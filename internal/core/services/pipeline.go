package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/core/ports/driving"
	"github.com/custodia-labs/vision/internal/logger"
)

// ChunkSplitter segments extracted content into chunks with projected
// anchor metadata. Satisfied by chunker.Chunker.
type ChunkSplitter interface {
	Chunk(doc *domain.Document, content *domain.Content) ([]domain.Chunk, error)
}

// Ensure Pipeline implements the interface.
var _ driving.JobRunner = (*Pipeline)(nil)

// Pipeline processes one ingestion job end to end: claim, extract, chunk,
// embed, persist. It is safe under redelivery because the claim is atomic;
// a second delivery of the same job ID is a no-op.
type Pipeline struct {
	jobStore  driven.JobStore
	docStore  driven.DocumentStore
	blobStore driven.BlobStore
	registry  driven.ExtractorRegistry
	splitter  ChunkSplitter
	embedding driven.EmbeddingService
}

// NewPipeline creates a new job pipeline.
func NewPipeline(
	jobStore driven.JobStore,
	docStore driven.DocumentStore,
	blobStore driven.BlobStore,
	registry driven.ExtractorRegistry,
	splitter ChunkSplitter,
	embedding driven.EmbeddingService,
) *Pipeline {
	return &Pipeline{
		jobStore:  jobStore,
		docStore:  docStore,
		blobStore: blobStore,
		registry:  registry,
		splitter:  splitter,
		embedding: embedding,
	}
}

// Run executes the job. Returning nil means the delivery is settled, which
// includes losing the claim race; the winner is already doing the work.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	job, err := p.jobStore.Claim(ctx, jobID)
	if errors.Is(err, domain.ErrAlreadyClaimed) {
		logger.Debug("Job %s already claimed, skipping delivery", jobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("claiming job %s: %w", jobID, err)
	}

	logger.Info("Processing job %s (document %s, attempt %d)", job.ID, job.DocumentID, job.Attempts)

	chunks, err := p.process(ctx, job)
	if err != nil {
		logger.Warn("Job %s failed: %v", job.ID, err)
		if failErr := p.jobStore.Fail(ctx, job.ID, err.Error()); failErr != nil {
			logger.Error("Recording failure for job %s: %v", job.ID, failErr)
		}
		return err
	}

	if err := p.jobStore.Complete(ctx, job.ID, chunks); err != nil {
		return fmt.Errorf("completing job %s: %w", job.ID, err)
	}

	logger.Info("Job %s completed with %d chunks", job.ID, len(chunks))
	return nil
}

// process runs extraction, chunking and embedding for a claimed job.
func (p *Pipeline) process(ctx context.Context, job *domain.Job) ([]domain.Chunk, error) {
	doc, err := p.docStore.Get(ctx, job.UserID, job.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	content, err := p.extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	chunks, err := p.splitter.Chunk(doc, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChunking, err)
	}
	if len(chunks) == 0 {
		// Empty documents complete successfully with no chunks.
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := p.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingService, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingService, len(embeddings), len(chunks))
	}

	dims := p.embedding.Dimensions()
	now := time.Now().UTC()
	for i := range chunks {
		if len(embeddings[i]) != dims {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, want %d",
				domain.ErrEmbeddingService, i, len(embeddings[i]), dims)
		}
		chunks[i].Embedding = embeddings[i]
		chunks[i].UserID = job.UserID
		chunks[i].DocumentID = doc.ID
		chunks[i].CreatedAt = now
	}

	return chunks, nil
}

// extract opens the stored bytes where the source type needs them and runs
// the registered extractor. Audio and metadata-only types work from the
// source URI alone.
func (p *Pipeline) extract(ctx context.Context, doc *domain.Document) (*domain.Content, error) {
	if !needsBlob(doc.SourceType) {
		return p.registry.Extract(ctx, doc, nil)
	}

	r, err := p.blobStore.Open(ctx, doc.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("%w: opening source %s: %v", domain.ErrExtraction, doc.SourceURI, err)
	}
	defer r.Close()

	return p.registry.Extract(ctx, doc, r)
}

func needsBlob(t domain.SourceType) bool {
	switch t {
	case domain.SourceTypeAudio, domain.SourceTypeWeb, domain.SourceTypeImage:
		return false
	default:
		return true
	}
}
