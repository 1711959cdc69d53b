package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vision/internal/core/domain"
)

var (
	queryTopK      int
	queryDocuments []string
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question grounded in ingested documents",
	Long: `Embeds the question, retrieves the most similar chunks from your
documents and synthesises an answer with [n] citations back to the
sources. Temporal phrases like "last week" restrict retrieval by time.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve")
	queryCmd.Flags().StringSliceVarP(&queryDocuments, "document", "d", nil, "restrict to specific document IDs")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryEngine == nil {
		return errors.New("query engine not configured")
	}

	answer, err := queryEngine.Answer(cmd.Context(), currentUser(), args[0], domain.QueryOptions{
		TopK:        queryTopK,
		DocumentIDs: queryDocuments,
	})
	if err != nil {
		return fmt.Errorf("answering query: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, c := range answer.Citations {
			line := fmt.Sprintf("  %s %s", c.Marker, c.Snippet)
			if c.PageNumber != nil {
				line += fmt.Sprintf(" (page %d)", *c.PageNumber)
			}
			cmd.Println(line)
		}
	}
	return nil
}
