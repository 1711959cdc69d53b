package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/core/ports/driving"
	"github.com/custodia-labs/vision/internal/logger"
)

const (
	// defaultTopK is how many chunks retrieval returns when the caller
	// does not ask for a specific number.
	defaultTopK = 8

	// noContextAnswer is the fixed answer for queries that retrieve no
	// chunks. Skipping generation here is deliberate: rather than send
	// the model an empty-context prompt and trust it to refuse, the
	// engine answers directly, so the no-grounding response is the same
	// regardless of provider and costs no generation call.
	noContextAnswer = "No relevant information found."

	// snippetLength bounds citation excerpts.
	snippetLength = 200
)

// markerPattern matches citation markers like [1] in generated answers.
var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Ensure QueryEngine implements the interface.
var _ driving.QueryService = (*QueryEngine)(nil)

// QueryEngine answers questions grounded in the tenant's indexed chunks.
type QueryEngine struct {
	chunkStore driven.ChunkStore
	embedding  driven.EmbeddingService
	llm        driven.LLMService
	topK       int
	genOpts    driven.GenerateOptions
	now        func() time.Time
}

// QueryOption configures the query engine.
type QueryOption func(*QueryEngine)

// WithTopK sets the default retrieval depth.
func WithTopK(k int) QueryOption {
	return func(e *QueryEngine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithGenerateOptions sets the generation parameters passed to the LLM.
func WithGenerateOptions(opts driven.GenerateOptions) QueryOption {
	return func(e *QueryEngine) { e.genOpts = opts }
}

// withClock overrides the time source for temporal filter tests.
func withClock(now func() time.Time) QueryOption {
	return func(e *QueryEngine) { e.now = now }
}

// NewQueryEngine creates a new query engine.
func NewQueryEngine(
	chunkStore driven.ChunkStore,
	embedding driven.EmbeddingService,
	llm driven.LLMService,
	opts ...QueryOption,
) *QueryEngine {
	e := &QueryEngine{
		chunkStore: chunkStore,
		embedding:  embedding,
		llm:        llm,
		topK:       defaultTopK,
		genOpts:    driven.GenerateOptions{MaxTokens: 1024, Temperature: 0.2},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer embeds the query, retrieves the user's nearest chunks and asks the
// LLM for a citation-annotated answer. Zero retrieved chunks produce a fixed
// answer with no citations, never an error.
func (e *QueryEngine) Answer(ctx context.Context, userID, query string, opts domain.QueryOptions) (*domain.Answer, error) {
	if userID == "" {
		return nil, domain.ErrTenantScope
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty: %w", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = e.topK
	}

	filter := driven.ChunkFilter{
		DocumentIDs:  opts.DocumentIDs,
		CreatedAfter: opts.CreatedAfter,
	}
	if filter.CreatedAfter == nil {
		if cutoff := parseTemporalFilter(query, e.now().UTC()); cutoff != nil {
			logger.Debug("Temporal phrase detected, filtering chunks created after %s", cutoff)
			filter.CreatedAfter = cutoff
		}
	}

	queryVec, err := e.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", domain.ErrEmbeddingService, err)
	}

	retrieved, err := e.chunkStore.Search(ctx, userID, queryVec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	logger.Debug("Retrieved %d chunks for query", len(retrieved))

	if len(retrieved) == 0 {
		return &domain.Answer{Text: noContextAnswer}, nil
	}

	prompt := buildPrompt(query, retrieved)
	text, err := e.llm.Generate(ctx, prompt, e.genOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}

	return &domain.Answer{
		Text:      text,
		Citations: resolveCitations(text, retrieved),
	}, nil
}

// buildPrompt renders the retrieved chunks as numbered context passages the
// model is instructed to cite by bracket number.
func buildPrompt(query string, retrieved []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the numbered context passages below. ")
	b.WriteString("Cite every claim with the bracketed number of its passage, e.g. [1]. ")
	b.WriteString("If the context does not contain the answer, say you don't know.\n\n")
	b.WriteString("Context:\n")

	for i, rc := range retrieved {
		b.WriteString(fmt.Sprintf("[%d]%s\n", i+1, describeChunk(rc.Chunk)))
		b.WriteString(rc.Chunk.Text)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// describeChunk renders a chunk's provenance inline after its marker.
func describeChunk(c domain.Chunk) string {
	var parts []string
	if c.PageNumber != nil {
		parts = append(parts, fmt.Sprintf("page %d", *c.PageNumber))
	}
	if c.SectionHeading != nil {
		parts = append(parts, *c.SectionHeading)
	}
	if c.Speaker != nil {
		parts = append(parts, *c.Speaker)
	}
	if c.StartOffset != nil && c.EndOffset != nil {
		parts = append(parts, fmt.Sprintf("%.0fs-%.0fs", *c.StartOffset, *c.EndOffset))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// resolveCitations maps the markers the model actually used back to their
// source chunks, in order of first appearance. Out-of-range markers are
// dropped.
func resolveCitations(answer string, retrieved []domain.RetrievedChunk) []domain.Citation {
	matches := markerPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var citations []domain.Citation
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(retrieved) || seen[n] {
			continue
		}
		seen[n] = true

		rc := retrieved[n-1]
		citations = append(citations, domain.Citation{
			Marker:     fmt.Sprintf("[%d]", n),
			DocumentID: rc.Chunk.DocumentID,
			Snippet:    snippet(rc.Chunk.Text),
			PageNumber: rc.Chunk.PageNumber,
			Score:      1 / (1 + rc.Distance),
		})
	}
	return citations
}

// snippet truncates chunk text to a short excerpt on a rune boundary.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}

// parseTemporalFilter recognises recency phrases in the query and converts
// them to a chunk creation-time lower bound. Returns nil when the query has
// no temporal intent.
func parseTemporalFilter(query string, now time.Time) *time.Time {
	q := strings.ToLower(query)

	var cutoff time.Time
	switch {
	case strings.Contains(q, "last 24 hours"):
		cutoff = now.Add(-24 * time.Hour)
	case strings.Contains(q, "yesterday"):
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		cutoff = midnight.AddDate(0, 0, -1)
	case strings.Contains(q, "last week"):
		cutoff = now.AddDate(0, 0, -7)
	case strings.Contains(q, "last month"):
		cutoff = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &cutoff
}
