package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vision/internal/core/domain"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and retry ingestion jobs",
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show a job's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsRetryCmd = &cobra.Command{
	Use:   "retry [job-id]",
	Short: "Retry a failed job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsRetry,
}

func init() {
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsRetryCmd)
	rootCmd.AddCommand(jobsCmd)
}

func getScopedJob(cmd *cobra.Command, jobID string) (*domain.Job, error) {
	job, err := ingestionService.GetJob(cmd.Context(), jobID)
	if err != nil {
		return nil, fmt.Errorf("reading job: %w", err)
	}
	if job.UserID != currentUser() {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	job, err := getScopedJob(cmd, args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Job:      %s\n", job.ID)
	cmd.Printf("Document: %s\n", job.DocumentID)
	cmd.Printf("Status:   %s\n", job.Status)
	cmd.Printf("Attempts: %d\n", job.Attempts)
	if job.ErrorMessage != "" {
		cmd.Printf("Error:    %s\n", job.ErrorMessage)
	}
	cmd.Printf("Updated:  %s\n", job.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runJobsRetry(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	if err := requireWorker(); err != nil {
		return err
	}

	job, err := getScopedJob(cmd, args[0])
	if err != nil {
		return err
	}

	if err := ingestionService.Retry(cmd.Context(), job.ID); err != nil {
		return fmt.Errorf("retrying job: %w", err)
	}

	ctx := cmd.Context()
	stop := runWorker(ctx)
	defer stop()

	job, err = waitForJob(ctx, job.ID)
	if err != nil {
		return err
	}

	cmd.Printf("Status: %s\n", job.Status)
	if job.Status == domain.StatusFailed {
		return fmt.Errorf("retry failed: %s", job.ErrorMessage)
	}
	return nil
}
