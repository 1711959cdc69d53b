package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vision/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage ingested documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your documents",
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsReprocessCmd = &cobra.Command{
	Use:   "reprocess [document-id]",
	Short: "Re-run ingestion for a document",
	Long: `Creates a fresh job for an already-registered document. The previous
chunks stay searchable until the new run completes, then the whole set
is replaced at once.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsReprocess,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsReprocessCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	docs, err := ingestionService.ListDocuments(cmd.Context(), currentUser())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}

	for _, d := range docs {
		cmd.Printf("%s  %-10s  %-9s  %s\n",
			d.ID, d.SourceType, d.Status, d.Title)
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	if err := ingestionService.DeleteDocument(cmd.Context(), currentUser(), args[0]); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Println("Deleted.")
	return nil
}

func runDocumentsReprocess(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	if err := requireWorker(); err != nil {
		return err
	}

	ctx := cmd.Context()
	job, err := ingestionService.CreateJob(ctx, currentUser(), args[0])
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	cmd.Printf("Job: %s\n", job.ID)

	stop := runWorker(ctx)
	defer stop()

	job, err = waitForJob(ctx, job.ID)
	if err != nil {
		return err
	}

	cmd.Printf("Status: %s\n", job.Status)
	if job.Status == domain.StatusFailed {
		return fmt.Errorf("reprocessing failed: %s", job.ErrorMessage)
	}
	return nil
}
