// Package chunker splits extracted content into ordered, bounded-size
// chunks while carrying page, section, speaker and time anchors across
// the split.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/vision/internal/core/domain"
)

// DefaultMaxSize is the default chunk budget in runes.
const DefaultMaxSize = 1000

// DefaultOverlap is the default overlap between consecutive chunks in runes.
const DefaultOverlap = 150

// DefaultTolerance is how far past MaxSize a chunk may extend to finish
// at a sentence boundary before hard truncation applies.
const DefaultTolerance = 100

// sentencePattern matches a sentence including its terminator.
var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*[\s]*`)

// Chunker produces deterministic chunk boundaries: identical text,
// anchors and configuration always yield identical chunks.
type Chunker struct {
	maxSize   int
	overlap   int
	tolerance int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxSize sets the chunk budget in runes.
func WithMaxSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in runes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithTolerance sets the sentence-boundary tolerance in runes.
func WithTolerance(tol int) Option {
	return func(c *Chunker) {
		if tol >= 0 {
			c.tolerance = tol
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize:   DefaultMaxSize,
		overlap:   DefaultOverlap,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for forward progress.
	if c.overlap >= c.maxSize {
		c.overlap = c.maxSize / 4
	}
	return c
}

// span is a sentence (or sentence fragment) located in the source text.
type span struct {
	start int // byte offset
	end   int // byte offset, exclusive
	size  int // rune count
}

// Chunk splits the content into ordered chunks for the document.
// Empty or whitespace-only content yields zero chunks and no error.
// Chunk indices are assigned by output order, starting at zero.
func (c *Chunker) Chunk(doc *domain.Document, content *domain.Content) ([]domain.Chunk, error) {
	if content == nil || strings.TrimSpace(content.Text) == "" {
		return nil, nil
	}

	spans := c.sentences(content.Text)
	if len(spans) == 0 {
		return nil, domain.ErrChunking
	}

	var chunks []domain.Chunk
	var current []span
	currentSize := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, c.build(doc, content, current, len(chunks)))

		// Keep a trailing window of sentences as overlap for the next chunk.
		var kept []span
		keptSize := 0
		for i := len(current) - 1; i >= 0; i-- {
			if keptSize+current[i].size > c.overlap {
				break
			}
			kept = append([]span{current[i]}, kept...)
			keptSize += current[i].size
		}
		current = kept
		currentSize = keptSize
	}

	for _, s := range spans {
		if currentSize+s.size > c.maxSize && len(current) > 0 {
			flush()
			// The retained overlap counts against the budget too; shed
			// it from the front until the incoming sentence fits.
			for len(current) > 0 && currentSize+s.size > c.maxSize {
				currentSize -= current[0].size
				current = current[1:]
			}
		}
		current = append(current, s)
		currentSize += s.size
	}
	if len(current) > 0 {
		chunks = append(chunks, c.build(doc, content, current, len(chunks)))
	}

	return chunks, nil
}

// sentences segments the text into spans. Sentences longer than the
// budget plus tolerance are hard-split at the budget so no span alone
// can exceed the tolerance window.
func (c *Chunker) sentences(text string) []span {
	var spans []span
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if strings.TrimSpace(text[start:end]) == "" {
			continue
		}
		size := utf8.RuneCountInString(text[start:end])
		if size <= c.maxSize+c.tolerance {
			spans = append(spans, span{start: start, end: end, size: size})
			continue
		}
		spans = append(spans, c.hardSplit(text, start, end)...)
	}
	return spans
}

// hardSplit cuts an oversized sentence into maxSize-rune pieces on rune
// boundaries.
func (c *Chunker) hardSplit(text string, start, end int) []span {
	var spans []span
	pieceStart := start
	runes := 0
	for i := start; i < end; {
		_, width := utf8.DecodeRuneInString(text[i:])
		i += width
		runes++
		if runes == c.maxSize || i == end {
			spans = append(spans, span{start: pieceStart, end: i, size: runes})
			pieceStart = i
			runes = 0
		}
	}
	return spans
}

// build assembles one chunk from grouped sentence spans, projecting the
// intersecting anchors onto it:
//
//   - page and section come from the anchor covering the chunk start
//   - the time range is the min/max over intersecting anchors
//   - the speaker is the one with the largest intersection
func (c *Chunker) build(doc *domain.Document, content *domain.Content, group []span, index int) domain.Chunk {
	start := group[0].start
	end := group[len(group)-1].end
	text := strings.TrimRight(content.Text[start:end], " \t\n")

	chunk := domain.Chunk{
		ID:         uuid.New().String(),
		UserID:     doc.UserID,
		DocumentID: doc.ID,
		Index:      index,
		Text:       text,
		SourceRef: map[string]any{
			"start_offset": start,
			"end_offset":   end,
		},
	}

	speakerWeight := map[string]int{}
	for i := range content.Anchors {
		a := &content.Anchors[i]
		if a.End <= start || a.Start >= end {
			continue
		}

		if a.Start <= start {
			if a.Page != nil && chunk.PageNumber == nil {
				chunk.PageNumber = a.Page
			}
			if a.Section != nil && chunk.SectionHeading == nil {
				chunk.SectionHeading = a.Section
			}
		}
		// First intersecting anchor still provides page/section when no
		// anchor covers the chunk start exactly.
		if a.Page != nil && chunk.PageNumber == nil {
			chunk.PageNumber = a.Page
		}
		if a.Section != nil && chunk.SectionHeading == nil {
			chunk.SectionHeading = a.Section
		}

		if a.TimeStart != nil {
			if chunk.StartOffset == nil || *a.TimeStart < *chunk.StartOffset {
				v := *a.TimeStart
				chunk.StartOffset = &v
			}
		}
		if a.TimeEnd != nil {
			if chunk.EndOffset == nil || *a.TimeEnd > *chunk.EndOffset {
				v := *a.TimeEnd
				chunk.EndOffset = &v
			}
		}

		if a.Speaker != nil {
			overlapStart := max(a.Start, start)
			overlapEnd := min(a.End, end)
			speakerWeight[*a.Speaker] += overlapEnd - overlapStart
		}
	}

	if len(speakerWeight) > 0 {
		best := ""
		bestWeight := -1
		for speaker, weight := range speakerWeight {
			// Deterministic tie-break on label for equal weights.
			if weight > bestWeight || (weight == bestWeight && speaker < best) {
				best, bestWeight = speaker, weight
			}
		}
		chunk.Speaker = &best
	}

	return chunk
}
