package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and set configuration values stored in config.toml.

Common keys:
  user.id              default tenant for commands without --user
  embedding.provider   openai or ollama
  embedding.model      embedding model name
  embedding.dimensions embedding vector size
  llm.provider         openai, anthropic or ollama
  llm.model            generation model name
  worker.concurrency   ingestion worker count
  worker.max_attempts  per-job attempt budget
  server.addr          HTTP API listen address`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if err := ensureConfigStore(); err != nil {
		return err
	}

	val, ok := configStore.Get(args[0])
	if !ok {
		cmd.Println("(not set)")
		return nil
	}
	cmd.Printf("%v\n", val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := ensureConfigStore(); err != nil {
		return err
	}

	key, raw := args[0], args[1]

	// Store numbers and booleans typed so GetInt/GetBool see them.
	var value any = raw
	if n, err := strconv.Atoi(raw); err == nil {
		value = n
	} else if b, err := strconv.ParseBool(raw); err == nil {
		value = b
	}

	if err := configStore.Set(key, value); err != nil {
		return err
	}
	cmd.Printf("%s = %v\n", key, value)
	return nil
}
