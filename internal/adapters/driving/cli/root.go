// Package cli implements the vision command-line interface.
//
// The root command wires the driven adapters (storage, queue, embedding,
// LLM, transcription) into the core services before any subcommand runs,
// so subcommands only talk to package-level service handles.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/vision/internal/adapters/driven/blob/local"
	"github.com/custodia-labs/vision/internal/adapters/driven/config/file"
	ollamaembed "github.com/custodia-labs/vision/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/vision/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/vision/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/vision/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/vision/internal/adapters/driven/llm/openai"
	queuelocal "github.com/custodia-labs/vision/internal/adapters/driven/queue/local"
	"github.com/custodia-labs/vision/internal/adapters/driven/storage/sqlite"
	openaitranscribe "github.com/custodia-labs/vision/internal/adapters/driven/transcription/openai"
	"github.com/custodia-labs/vision/internal/chunker"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/core/services"
	"github.com/custodia-labs/vision/internal/extractors"
	"github.com/custodia-labs/vision/internal/extractors/audio"
	"github.com/custodia-labs/vision/internal/extractors/markdown"
	"github.com/custodia-labs/vision/internal/extractors/metadata"
	"github.com/custodia-labs/vision/internal/extractors/pdf"
	"github.com/custodia-labs/vision/internal/extractors/plaintext"
	"github.com/custodia-labs/vision/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose   bool
	userFlag  string
	dataDir   string
	configDir string
)

// Package-level handles populated by initPorts and shared by subcommands.
var (
	store            *sqlite.Store
	configStore      driven.ConfigStore
	dispatcher       *queuelocal.Dispatcher
	ingestionService *services.IngestionService
	queryEngine      *services.QueryEngine
	pipeline         *services.Pipeline
	worker           *services.Worker
	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
)

var rootCmd = &cobra.Command{
	Use:   "vision",
	Short: "Ingest documents and ask grounded questions about them",
	Long: `Vision ingests documents (text, markdown, PDF, audio) into a local
per-user index and answers natural-language questions grounded in the
ingested content, with citations back to the sources.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if skipsPorts(cmd) {
			return nil
		}
		return initPorts()
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if !skipsPorts(cmd) {
			closePorts()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user ID (default from config, then \"default\")")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.vision/data)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.vision)")
}

// Execute runs the root command.
func Execute() {
	// .env is optional; real environment always wins.
	_ = godotenv.Load() //nolint:errcheck // Missing .env file is fine

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// skipsPorts reports whether a command runs without the full adapter
// wiring. Config commands only need the config store so that API keys
// can be set before any provider is reachable.
func skipsPorts(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help":
		return true
	case "get", "set":
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return true
		}
	}
	return false
}

// currentUser resolves the tenant for this invocation.
func currentUser() string {
	if userFlag != "" {
		return userFlag
	}
	if configStore != nil {
		if id := configStore.GetString("user.id"); id != "" {
			return id
		}
	}
	return "default"
}

// ensureConfigStore opens the config store if initPorts has not run.
func ensureConfigStore() error {
	if configStore != nil {
		return nil
	}
	cfg, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	configStore = cfg
	return nil
}

// initPorts builds the driven adapters and core services. Provider
// adapters that are not configured are left nil; subcommands that need
// them report this instead of failing at startup.
func initPorts() error {
	if err := ensureConfigStore(); err != nil {
		return err
	}

	var err error
	store, err = sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	embeddingService, err = buildEmbeddingService()
	if err != nil {
		logger.Warn("Embedding provider not configured: %v", err)
		embeddingService = nil
	}
	llmService, err = buildLLMService()
	if err != nil {
		logger.Warn("LLM provider not configured: %v", err)
		llmService = nil
	}

	registry := extractors.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(markdown.New())
	registry.Register(pdf.New())
	registry.Register(metadata.New())
	if transcriber, terr := buildTranscriptionService(); terr == nil {
		registry.Register(audio.New(transcriber))
	} else {
		logger.Debug("Audio ingestion disabled: %v", terr)
	}

	splitter := chunker.New(
		chunker.WithMaxSize(configStore.GetInt("chunker.max_size")),
		chunker.WithOverlap(configStore.GetInt("chunker.overlap")),
	)

	blobStore := local.NewBlobStore(configStore.GetString("blob.root"))
	dispatcher = queuelocal.NewDispatcher()

	// The explicit retry path and the worker's automatic retries share
	// one attempt budget.
	ingestionService = services.NewIngestionService(
		store.UserStore(), store.DocumentStore(), store.JobStore(), dispatcher,
		services.WithMaxAttempts(workerMaxAttempts()),
	)

	if embeddingService != nil {
		pipeline = services.NewPipeline(
			store.JobStore(), store.DocumentStore(), blobStore, registry, splitter, embeddingService,
		)

		workerOpts := []services.WorkerOption{
			services.WithWorkerMaxAttempts(workerMaxAttempts()),
		}
		if n := configStore.GetInt("worker.concurrency"); n > 0 {
			workerOpts = append(workerOpts, services.WithConcurrency(n))
		}
		worker = services.NewWorker(pipeline, store.JobStore(), dispatcher.Jobs(), workerOpts...)
	}

	if embeddingService != nil && llmService != nil {
		var queryOpts []services.QueryOption
		if k := configStore.GetInt("query.top_k"); k > 0 {
			queryOpts = append(queryOpts, services.WithTopK(k))
		}
		queryEngine = services.NewQueryEngine(store.ChunkStore(), embeddingService, llmService, queryOpts...)
	}

	return nil
}

func closePorts() {
	if dispatcher != nil {
		_ = dispatcher.Close() //nolint:errcheck // Shutdown path
	}
	if embeddingService != nil {
		_ = embeddingService.Close() //nolint:errcheck // Shutdown path
	}
	if llmService != nil {
		_ = llmService.Close() //nolint:errcheck // Shutdown path
	}
	if store != nil {
		_ = store.Close() //nolint:errcheck // Shutdown path
	}
}

func buildEmbeddingService() (driven.EmbeddingService, error) {
	provider := strings.ToLower(configStore.GetString("embedding.provider"))
	switch provider {
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    configStore.GetString("ollama.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: configStore.GetInt("embedding.dimensions"),
		}), nil
	case "", "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     openaiAPIKey(),
			BaseURL:    configStore.GetString("openai.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: configStore.GetInt("embedding.dimensions"),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

func buildLLMService() (driven.LLMService, error) {
	provider := strings.ToLower(configStore.GetString("llm.provider"))
	switch provider {
	case "ollama":
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: configStore.GetString("ollama.base_url"),
			Model:   configStore.GetString("llm.model"),
		}), nil
	case "anthropic":
		return anthropic.NewLLMService(anthropic.Config{
			APIKey: firstNonEmpty(os.Getenv("ANTHROPIC_API_KEY"), configStore.GetString("anthropic.api_key")),
			Model:  configStore.GetString("llm.model"),
		})
	case "", "openai":
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  openaiAPIKey(),
			BaseURL: configStore.GetString("openai.base_url"),
			Model:   configStore.GetString("llm.model"),
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

func buildTranscriptionService() (driven.TranscriptionService, error) {
	return openaitranscribe.NewTranscriptionService(openaitranscribe.Config{
		APIKey:  openaiAPIKey(),
		BaseURL: configStore.GetString("openai.base_url"),
		Model:   configStore.GetString("transcription.model"),
	})
}

func openaiAPIKey() string {
	return firstNonEmpty(os.Getenv("OPENAI_API_KEY"), configStore.GetString("openai.api_key"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// workerMaxAttempts is the configured per-job attempt budget.
func workerMaxAttempts() int {
	if n := configStore.GetInt("worker.max_attempts"); n > 0 {
		return n
	}
	return services.DefaultMaxAttempts
}

// requireWorker reports a usable error when ingestion cannot run because
// no embedding provider is configured.
func requireWorker() error {
	if worker == nil {
		return fmt.Errorf("embedding provider not configured: set OPENAI_API_KEY or run 'vision config set openai.api_key <key>'")
	}
	return nil
}

// runWorker starts the in-process worker and returns a stop function that
// drains the queue before returning.
func runWorker(ctx context.Context) (stop func()) {
	worker.Start(ctx)
	return func() {
		_ = dispatcher.Close() //nolint:errcheck // Shutdown path
		dispatcher = nil
		worker.Wait()
	}
}
