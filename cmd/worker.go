package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/config"
	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/workflow"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal recalculation worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, cfg, "worker")
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := dialTemporal(cfg.Temporal)
		if err != nil {
			return err
		}
		defer c.Close()

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
			MaxConcurrentActivityExecutionSize:     concurrency,
			MaxConcurrentWorkflowTaskExecutionSize: concurrency,
		})
		workflow.Register(w, &workflow.Activities{Engine: env.Engine})

		zap.L().Info("starting worker",
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.Int("concurrency", concurrency),
		)

		interrupt := make(chan any)
		go func() {
			<-ctx.Done()
			close(interrupt)
		}()
		if err := w.Run(interrupt); err != nil {
			return eris.Wrap(err, "worker run")
		}
		return nil
	},
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Queue a product recalculation on the worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("recalculate"); err != nil {
			return err
		}

		productID, _ := cmd.Flags().GetString("product")
		orgID, _ := cmd.Flags().GetString("org")
		wait, _ := cmd.Flags().GetBool("wait")
		if productID == "" {
			return eris.New("recalculate: --product is required")
		}

		c, err := dialTemporal(cfg.Temporal)
		if err != nil {
			return err
		}
		defer c.Close()

		run, err := workflow.StartRecalculation(ctx, c, cfg.Temporal.TaskQueue, engine.Request{
			ProductID: productID,
			OrgID:     orgID,
		})
		if err != nil {
			return err
		}
		zap.L().Info("recalculation queued",
			zap.String("workflow_id", run.GetID()),
			zap.String("run_id", run.GetRunID()),
		)

		if !wait {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued %s (%s)\n", run.GetID(), run.GetRunID())
			return nil
		}

		var summary workflow.Summary
		if err := run.Get(ctx, &summary); err != nil {
			return eris.Wrapf(err, "recalculate %s", productID)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "run %s: %.4f kg CO2e, %d warning(s)\n",
			summary.RunID, summary.TotalClimate, summary.Warnings)
		return nil
	},
}

func dialTemporal(tc config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  tc.HostPort,
		Namespace: tc.Namespace,
		Logger:    workflow.NewLogger(zap.L()),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dial temporal %s", tc.HostPort)
	}
	return c, nil
}

func init() {
	workerCmd.Flags().Int("concurrency", 4, "max concurrent activities and workflow tasks")
	rootCmd.AddCommand(workerCmd)

	recalculateCmd.Flags().String("product", "", "product ID to recalculate (required)")
	recalculateCmd.Flags().String("org", "", "organization ID for supplier lookups")
	recalculateCmd.Flags().Bool("wait", false, "wait for the workflow to finish")
	rootCmd.AddCommand(recalculateCmd)
}
