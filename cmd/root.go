package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/config"
)

var (
	cfg           *config.Config
	traceShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "impact-engine",
	Short: "Product environmental impact resolution and aggregation",
	Long:  "Resolves per-material impact factors through a tiered waterfall, attributes facility emissions, aggregates by stage and scope, and interprets the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		shutdown, err := initTracing(cfg.Trace, os.Stderr)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		traceShutdown = shutdown

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if traceShutdown != nil {
			if err := traceShutdown(context.Background()); err != nil {
				zap.L().Warn("trace shutdown failed", zap.Error(err))
			}
		}
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
