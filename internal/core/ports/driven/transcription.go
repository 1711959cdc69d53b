package driven

import "context"

// Segment is a time-aligned span of transcribed speech.
type Segment struct {
	// Text is the transcribed text of the segment.
	Text string

	// Start and End are offsets in seconds from the beginning of the audio.
	Start float64
	End   float64

	// Speaker is a speaker label when the provider supplies one.
	Speaker string
}

// Transcript is the full transcription of an audio source.
type Transcript struct {
	// Text is the full transcript.
	Text string

	// Segments are the time-aligned spans, in order.
	Segments []Segment
}

// TranscriptionService transcribes audio into time-aligned segments.
// Optional: only required when audio sources are ingested.
type TranscriptionService interface {
	// Transcribe fetches and transcribes the audio at the given URI.
	Transcribe(ctx context.Context, uri string) (*Transcript, error)

	// Close releases resources.
	Close() error
}
