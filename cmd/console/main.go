package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sablewing/agent-console/internal/config"
	"github.com/sablewing/agent-console/internal/history"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Inspect and follow agent event timelines",
	Long: `A terminal console for agent event feeds.

The client commands (events, timeline, tail) talk to a backend that serves
paginated event history and a realtime push stream. The serve command runs a
local stand-in for that backend with scripted fixture data, so the console
can be developed and demoed without a hosted deployment.

Configuration is read from config.yaml and CONSOLE_* environment variables;
a .env file in the working directory is loaded first if present.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging builds the process logger at the configured level and
// installs it as the slog default. Server output goes to stdout; client
// commands pass stderr so log lines stay out of the rendered timeline.
func setupLogging(cfg *config.Config, out io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func newHistoryClient(cfg *config.Config) *history.Client {
	var opts []history.ClientOption
	if cfg.Console.APIKey != "" {
		opts = append(opts, history.WithAPIKey(cfg.Console.APIKey))
	}
	return history.NewClient(cfg.Console.BaseURL, opts...)
}
