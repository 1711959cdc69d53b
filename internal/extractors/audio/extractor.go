// Package audio extracts audio documents by transcribing them into
// time-aligned segments.
package audio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles audio documents via an external transcription service.
type Extractor struct {
	transcriber driven.TranscriptionService
}

// New creates a new audio extractor backed by the given service.
func New(transcriber driven.TranscriptionService) *Extractor {
	return &Extractor{transcriber: transcriber}
}

// SourceTypes returns the source types this extractor handles.
func (e *Extractor) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeAudio}
}

// Extract transcribes the audio behind doc.SourceURI. The byte reader is
// ignored; the transcription service fetches the source itself. Each
// transcript segment becomes one anchor carrying its time range and
// speaker label.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document, _ io.Reader) (*domain.Content, error) {
	if e.transcriber == nil {
		return nil, fmt.Errorf("transcription service not configured")
	}

	logger.Info("Transcribing audio from %s", doc.SourceURI)
	transcript, err := e.transcriber.Transcribe(ctx, doc.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	var sb strings.Builder
	anchors := make([]domain.Anchor, 0, len(transcript.Segments))

	for _, seg := range transcript.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		start := sb.Len()
		sb.WriteString(text)

		anchor := domain.Anchor{Start: start, End: sb.Len()}
		ts, te := seg.Start, seg.End
		anchor.TimeStart = &ts
		anchor.TimeEnd = &te
		if seg.Speaker != "" {
			speaker := seg.Speaker
			anchor.Speaker = &speaker
		}
		anchors = append(anchors, anchor)
	}

	// Some providers return only the full transcript.
	if sb.Len() == 0 && strings.TrimSpace(transcript.Text) != "" {
		text := strings.TrimSpace(transcript.Text)
		return &domain.Content{
			Text:    text,
			Anchors: []domain.Anchor{{Start: 0, End: len(text)}},
		}, nil
	}

	return &domain.Content{Text: sb.String(), Anchors: anchors}, nil
}
