// Package cmd implements the harvester command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/config"
	"github.com/JakeFAU/recipe-harvester/internal/logging"
)

// runtime is the state shared by every subcommand once the root pre-run has finished.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

type runtimeKey struct{}

func runtimeFrom(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("configuration not loaded")
	}
	return rt, nil
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile     string
		envFile     string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvest recipes from mob.co.uk into a CSV store",
		Long: `harvester scrapes recipe pages (or a listing of recipe cards), resolves each
recipe's fields from the page markup, embedded JSON-LD and fallbacks, and writes
the result to a quoted CSV store. Every run backs the store up first and restores
it if a write fails.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, &runtime{cfg: cfg, logger: logger}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := runtimeFrom(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON); RECIPES_* variables override it")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with RECIPES_* variables (default: ./.env when present)")
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /status on this address while running")

	cmd.AddCommand(
		newScrapeCmd(),
		newCollectCmd(),
		newReimageCmd(),
		newTagCmd(),
	)
	return cmd
}

// loadEnvFile exports the variables of a dotenv file without overriding ones already set.
// An empty path loads ./.env if it exists.
func loadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
