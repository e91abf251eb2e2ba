package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// fakeCalculator fails the first failures calls with err, then succeeds.
type fakeCalculator struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (f *fakeCalculator) Calculate(_ context.Context, req engine.Request) (*engine.Result, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, f.err
	}
	agg := model.NewAggregatedImpacts(req.ProductID)
	agg.Total.Climate = 4.2
	return &engine.Result{
		Run:            model.CalculationRun{ID: "run-7", ProductID: req.ProductID, Status: model.RunStatusComplete},
		Aggregated:     agg,
		Interpretation: model.InterpretationResult{Conclusions: []string{"done"}},
		Warnings:       []model.Warning{{Code: model.WarnProxyMissing}},
	}, nil
}

func newEnv(t *testing.T, calc Calculator) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(RecalculateWorkflow)
	env.RegisterActivityWithOptions((&Activities{Engine: calc}).CalculateFootprint,
		activity.RegisterOptions{Name: ActivityCalculateFootprint})
	return env
}

func TestRecalculateWorkflow_Success(t *testing.T) {
	calc := &fakeCalculator{}
	env := newEnv(t, calc)

	env.ExecuteWorkflow(RecalculateWorkflow, engine.Request{ProductID: "prod-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out Summary
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, "run-7", out.RunID)
	assert.Equal(t, "prod-1", out.ProductID)
	assert.InDelta(t, 4.2, out.TotalClimate, 1e-9)
	assert.Equal(t, 1, out.Warnings)
	assert.Equal(t, []string{"done"}, out.Conclusions)
	assert.Equal(t, int32(1), calc.calls.Load())
}

func TestRecalculateWorkflow_RetriesTransientFailure(t *testing.T) {
	calc := &fakeCalculator{failures: 2, err: errors.New("connection refused")}
	env := newEnv(t, calc)

	env.ExecuteWorkflow(RecalculateWorkflow, engine.Request{ProductID: "prod-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, int32(3), calc.calls.Load())
}

func TestRecalculateWorkflow_MissingFactorNotRetried(t *testing.T) {
	calc := &fakeCalculator{failures: 10, err: &waterfall.MissingFactorError{MaterialID: "m2", MaterialName: "Flour"}}
	env := newEnv(t, calc)

	env.ExecuteWorkflow(RecalculateWorkflow, engine.Request{ProductID: "prod-1"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeMissingFactor, appErr.Type())
	assert.Contains(t, appErr.Error(), "Flour")
	assert.Equal(t, int32(1), calc.calls.Load())
}

func TestRecalculateWorkflow_RequiresProduct(t *testing.T) {
	calc := &fakeCalculator{}
	env := newEnv(t, calc)

	env.ExecuteWorkflow(RecalculateWorkflow, engine.Request{})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	assert.Equal(t, int32(0), calc.calls.Load())
}

type mockStarter struct {
	mock.Mock
}

func (m *mockStarter) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, wf any, args ...any) (client.WorkflowRun, error) {
	called := m.Called(ctx, options, wf, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).(client.WorkflowRun), called.Error(1)
}

func TestStartRecalculation(t *testing.T) {
	st := &mockStarter{}
	req := engine.Request{ProductID: "prod-1"}
	st.On("ExecuteWorkflow", mock.Anything, client.StartWorkflowOptions{
		ID:        "recalculate-prod-1",
		TaskQueue: "impact-recalculation",
	}, WorkflowRecalculate, []any{req}).Return(nil, errors.New("namespace not found"))

	_, err := StartRecalculation(context.Background(), st, "impact-recalculation", req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow: start recalculation prod-1")
	st.AssertExpectations(t)
}
