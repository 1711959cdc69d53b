package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driving"
)

var (
	ingestType  string
	ingestTitle string
	ingestWait  bool
)

// pollInterval is how often `ingest --wait` re-reads the job.
const pollInterval = 250 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [source]",
	Short: "Register a document and process it",
	Long: `Registers a document for ingestion and dispatches a processing job.
The source is a file path or file:// URI. The source type is inferred
from the file extension unless --type is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", "source type (text, markdown, pdf, audio, web, image)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (default: file name)")
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", true, "wait for the job to finish")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if err := requireWorker(); err != nil {
		return err
	}

	uri := args[0]
	sourceType := domain.SourceType(ingestType)
	if ingestType == "" {
		sourceType = inferSourceType(uri)
	}

	title := ingestTitle
	if title == "" {
		title = filepath.Base(strings.TrimPrefix(uri, "file://"))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := ingestionService.Submit(ctx, driving.Submission{
		UserID:     currentUser(),
		Title:      title,
		SourceType: sourceType,
		SourceURI:  uri,
	})
	if err != nil {
		return fmt.Errorf("submitting document: %w", err)
	}

	cmd.Printf("Document: %s\n", result.DocumentID)
	cmd.Printf("Job:      %s\n", result.JobID)

	if !ingestWait {
		cmd.Printf("Status:   %s\n", result.Status)
		return nil
	}

	stop := runWorker(ctx)
	defer stop()

	job, err := waitForJob(ctx, result.JobID)
	if err != nil {
		return err
	}

	cmd.Printf("Status:   %s\n", job.Status)
	if job.Status == domain.StatusFailed {
		return fmt.Errorf("ingestion failed: %s", job.ErrorMessage)
	}
	return nil
}

// waitForJob polls until the job settles. A failed job counts as settled
// only once its retry budget is spent, so the poll does not report a
// failure the worker is about to retry.
func waitForJob(ctx context.Context, jobID string) (*domain.Job, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		job, err := ingestionService.GetJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("reading job: %w", err)
		}
		if job.Status == domain.StatusCompleted {
			return job, nil
		}
		if job.Status == domain.StatusFailed && job.Attempts >= workerMaxAttempts() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// inferSourceType maps a file extension to a source type, defaulting to text.
func inferSourceType(uri string) domain.SourceType {
	switch strings.ToLower(filepath.Ext(strings.TrimPrefix(uri, "file://"))) {
	case ".md", ".markdown":
		return domain.SourceTypeMarkdown
	case ".pdf":
		return domain.SourceTypePDF
	case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
		return domain.SourceTypeAudio
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return domain.SourceTypeImage
	default:
		return domain.SourceTypeText
	}
}
