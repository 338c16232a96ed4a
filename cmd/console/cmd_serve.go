package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sablewing/agent-console/internal/config"
	"github.com/sablewing/agent-console/internal/telemetry"
	"github.com/sablewing/agent-console/pkg/devbackend"
	"github.com/spf13/cobra"
)

const (
	defaultSeedDays  = 7
	simulateInterval = 15 * time.Second
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	serveCmd.Flags().String("storage", "", "storage backend: memory or sqlite (overrides config)")
	serveCmd.Flags().String("db", "", "sqlite database path (overrides config)")
	serveCmd.Flags().String("agent", "agent_demo", "agent id for seeded and simulated runs")
	serveCmd.Flags().Bool("seed", false, "seed a scripted multi-day history on startup")
	serveCmd.Flags().Bool("simulate", false, "emit a scripted live run every few seconds")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local development backend",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyServeFlags(cmd, cfg)
	logger := setupLogging(cfg, os.Stdout)

	shutdownTracer, err := telemetry.Init("agent-console-dev", logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	opts, err := backendOptions(cmd, cfg, logger)
	if err != nil {
		return err
	}
	backend, err := devbackend.New(opts...)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := backend.Start(ctx); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping backend...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := backend.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// applyServeFlags lets command-line flags override the file and environment
// configuration for a one-off run.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("addr") {
		cfg.Dev.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("storage") {
		cfg.Dev.Storage.Type, _ = cmd.Flags().GetString("storage")
	}
	if cmd.Flags().Changed("db") {
		cfg.Dev.Storage.SQLite.Path, _ = cmd.Flags().GetString("db")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Dev.Seed, _ = cmd.Flags().GetBool("seed")
	}
	if cmd.Flags().Changed("simulate") {
		cfg.Dev.Simulate, _ = cmd.Flags().GetBool("simulate")
	}
}

func backendOptions(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) ([]devbackend.Option, error) {
	opts := []devbackend.Option{
		devbackend.WithAddr(cfg.Dev.Addr),
		devbackend.WithLogger(logger),
	}

	switch cfg.Dev.Storage.Type {
	case "sqlite":
		opts = append(opts, devbackend.WithSQLite(cfg.Dev.Storage.SQLite.Path))
	case "memory", "":
		opts = append(opts, devbackend.WithMemory())
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Dev.Storage.Type)
	}

	if cfg.Console.APIKey != "" {
		opts = append(opts, devbackend.WithAPIKey(cfg.Console.APIKey))
	}

	agentID, _ := cmd.Flags().GetString("agent")
	if cfg.Dev.Seed {
		opts = append(opts, devbackend.WithSeed(agentID, defaultSeedDays))
	}
	if cfg.Dev.Simulate {
		opts = append(opts, devbackend.WithSimulator(agentID, simulateInterval))
	}
	return opts, nil
}
