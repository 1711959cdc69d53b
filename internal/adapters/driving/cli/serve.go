package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vision/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and ingestion workers",
	Long: `Starts the HTTP API together with the background ingestion workers.
The process runs until interrupted; on shutdown the queue is drained
before the server exits.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8484 or server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil || queryEngine == nil {
		return errors.New("services not configured")
	}
	if err := requireWorker(); err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = configStore.GetString("server.addr")
	}
	if addr == "" {
		addr = ":8484"
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stop := runWorker(ctx)
	defer stop()

	server := httpapi.NewServer(ingestionService, queryEngine)
	if err := server.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
