// Package workflow runs product recalculations as Temporal workflows so
// that transient failures are retried durably.
package workflow

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/impact-engine/internal/engine"
)

// Registered names.
const (
	WorkflowRecalculate        = "RecalculateWorkflow"
	ActivityCalculateFootprint = "CalculateFootprint"
)

// ErrTypeMissingFactor is the application error type of a calculation that
// failed for lack of an impact factor. Retrying cannot fix it.
const ErrTypeMissingFactor = "MissingFactorError"

// Summary is the workflow result.
type Summary struct {
	RunID        string   `json:"run_id"`
	ProductID    string   `json:"product_id"`
	TotalClimate float64  `json:"total_climate"`
	Warnings     int      `json:"warnings"`
	Conclusions  []string `json:"conclusions"`
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        2 * time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypeMissingFactor},
		},
	}
}

// RecalculateWorkflow runs one product calculation.
func RecalculateWorkflow(ctx workflow.Context, req engine.Request) (*Summary, error) {
	if req.ProductID == "" {
		return nil, temporal.NewNonRetryableApplicationError("workflow: product id is required", "InvalidRequest", nil)
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	logger := workflow.GetLogger(ctx)
	logger.Info("workflow: recalculating product", "product_id", req.ProductID)

	var out Summary
	if err := workflow.ExecuteActivity(ctx, ActivityCalculateFootprint, req).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register adds the workflow and activities to a worker.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(RecalculateWorkflow, workflow.RegisterOptions{Name: WorkflowRecalculate})
	w.RegisterActivityWithOptions(acts.CalculateFootprint, activity.RegisterOptions{Name: ActivityCalculateFootprint})
}

// Starter starts workflows. client.Client satisfies it.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
}

// StartRecalculation starts a recalculation on taskQueue. Workflows are keyed
// by product so concurrent requests for one product share a run.
func StartRecalculation(ctx context.Context, c Starter, taskQueue string, req engine.Request) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:        "recalculate-" + req.ProductID,
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, WorkflowRecalculate, req)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: start recalculation %s", req.ProductID)
	}
	return run, nil
}
