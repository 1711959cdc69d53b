// Package openai provides an audio transcription adapter using the OpenAI
// Whisper API through the sashabaranov/go-openai client.
package openai

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/logger"
)

// Ensure TranscriptionService implements the interface.
var _ driven.TranscriptionService = (*TranscriptionService)(nil)

// DefaultModel is the transcription model used when none is configured.
const DefaultModel = goopenai.Whisper1

// Config holds configuration for the transcription service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL for compatible servers.
	BaseURL string

	// Model is the transcription model (default: whisper-1).
	Model string
}

// TranscriptionService transcribes audio files via the Whisper API.
type TranscriptionService struct {
	client *goopenai.Client
	model  string
}

// NewTranscriptionService creates a new Whisper-backed transcription service.
func NewTranscriptionService(cfg Config) (*TranscriptionService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &TranscriptionService{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Transcribe reads the audio behind the URI and returns the time-aligned
// transcript. Only local sources (plain paths and file:// URIs) are
// supported; the upload layer stores audio locally before job creation.
func (s *TranscriptionService) Transcribe(ctx context.Context, uri string) (*driven.Transcript, error) {
	path, err := localPath(uri)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	logger.Debug("Transcribing %s with %s", path, s.model)
	resp, err := s.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    s.model,
		FilePath: filepath.Base(path),
		Reader:   f,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	transcript := &driven.Transcript{Text: strings.TrimSpace(resp.Text)}
	for _, seg := range resp.Segments {
		transcript.Segments = append(transcript.Segments, driven.Segment{
			Text:  strings.TrimSpace(seg.Text),
			Start: seg.Start,
			End:   seg.End,
		})
	}
	return transcript, nil
}

// Close releases resources.
func (s *TranscriptionService) Close() error {
	return nil
}

// localPath resolves a source URI to a filesystem path.
func localPath(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing source uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported audio source scheme %q", u.Scheme)
	}
	return u.Path, nil
}
