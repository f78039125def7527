package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow/agentflow/internal/application/planner"
	"github.com/agentflow/agentflow/internal/domain/agent"
	"github.com/agentflow/agentflow/internal/domain/event"
	"github.com/agentflow/agentflow/internal/domain/task"
	"github.com/agentflow/agentflow/internal/domain/workflow"
)

func stepResults(res *WorkflowResult) map[string]StepResult {
	byID := make(map[string]StepResult, len(res.Steps))
	for _, sr := range res.Steps {
		byID[sr.StepID] = sr
	}
	return byID
}

func TestExecuteWorkflow_SequentialDataFlow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil, nil)

	var mu sync.Mutex
	var order []string
	seen := make(map[string]map[string]interface{})
	record := func(name string, out interface{}) agent.WorkerFunc {
		return func(ctx context.Context, tk task.Task) (interface{}, error) {
			mu.Lock()
			order = append(order, name)
			seen[name] = tk.Context
			mu.Unlock()
			return out, nil
		}
	}
	svc.RegisterAgent("nl-input", record("nl-input", map[string]interface{}{"parsed": true}))
	svc.RegisterAgent("parser", record("parser", "ast"))

	plan, err := svc.planner.CreatePlan(ctx, planner.Request{Agents: []string{"nl-input", "parser"}})
	require.NoError(t, err)

	result, err := svc.ExecuteWorkflow(ctx, plan.ID, map[string]interface{}{"requirement": "login form"})
	require.NoError(t, err)

	assert.Equal(t, WorkflowCompleted, result.Status)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, []string{"nl-input", "parser"}, order)

	// The second step observes the first step's output alongside the
	// original input.
	parserData := seen["parser"]
	assert.Equal(t, "login form", parserData["requirement"])
	assert.Equal(t, map[string]interface{}{"parsed": true}, parserData["step-1"])

	assert.Equal(t, "ast", result.Data["step-2"])
	assert.Equal(t, StepCompleted, result.Steps[0].Status)
	assert.Equal(t, StepCompleted, result.Steps[1].Status)
}

func TestExecuteWorkflow_ParallelFanout(t *testing.T) {
	ctx := context.Background()
	templates := map[string]workflow.Plan{
		"fanout": {
			Name: "fanout",
			Steps: []workflow.Step{
				{ID: "a", Name: "a", Type: workflow.StepParallel, Agents: []string{"worker-a"}, TimeoutSeconds: 5},
				{ID: "b", Name: "b", Type: workflow.StepParallel, Agents: []string{"worker-b"}, TimeoutSeconds: 5},
				{ID: "c", Name: "c", Type: workflow.StepParallel, Agents: []string{"worker-c"}, TimeoutSeconds: 5},
			},
		},
	}
	svc := newTestService(templates, nil)

	var arrived int32
	release := make(chan struct{})
	barrier := func(name string) agent.WorkerFunc {
		return func(ctx context.Context, tk task.Task) (interface{}, error) {
			atomic.AddInt32(&arrived, 1)
			select {
			case <-release:
				return name, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	svc.RegisterAgent("worker-a", barrier("worker-a"))
	svc.RegisterAgent("worker-b", barrier("worker-b"))
	svc.RegisterAgent("worker-c", barrier("worker-c"))

	plan, err := svc.planner.CreatePlan(ctx, planner.Request{TaskType: "fanout"})
	require.NoError(t, err)

	done := make(chan struct{})
	var result *WorkflowResult
	var execErr error
	go func() {
		result, execErr = svc.ExecuteWorkflow(ctx, plan.ID, nil)
		close(done)
	}()

	// All three dependency-free steps must be in flight at once.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&arrived) == 3
	}, 2*time.Second, 5*time.Millisecond)
	close(release)
	<-done

	require.NoError(t, execErr)
	assert.Equal(t, WorkflowCompleted, result.Status)
	assert.Equal(t, "worker-a", result.Data["a"])
}

func TestExecuteWorkflow_FailureAbortsDependents(t *testing.T) {
	ctx := context.Background()
	templates := map[string]workflow.Plan{
		"pipeline": {
			Name: "pipeline",
			Steps: []workflow.Step{
				{ID: "extract", Name: "extract", Type: workflow.StepSequential, Agents: []string{"extractor"}, TimeoutSeconds: 5},
				{ID: "transform", Name: "transform", Type: workflow.StepSequential, Dependencies: []string{"extract"}, Agents: []string{"transformer"}, TimeoutSeconds: 5},
				{ID: "load", Name: "load", Type: workflow.StepSequential, Dependencies: []string{"transform"}, Agents: []string{"loader"}, TimeoutSeconds: 5},
				{ID: "audit", Name: "audit", Type: workflow.StepSequential, Agents: []string{"auditor"}, TimeoutSeconds: 5},
			},
		},
	}
	svc := newTestService(templates, nil)

	svc.RegisterAgent("extractor", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
		return nil, errors.New("source unreachable")
	}))
	var transformerRan, loaderRan int32
	svc.RegisterAgent("transformer", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
		atomic.AddInt32(&transformerRan, 1)
		return "transformed", nil
	}))
	svc.RegisterAgent("loader", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
		atomic.AddInt32(&loaderRan, 1)
		return "loaded", nil
	}))
	svc.RegisterAgent("auditor", echoWorker("auditor"))

	plan, err := svc.planner.CreatePlan(ctx, planner.Request{TaskType: "pipeline"})
	require.NoError(t, err)

	result, err := svc.ExecuteWorkflow(ctx, plan.ID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentExecution)
	assert.Contains(t, err.Error(), "extract")
	require.NotNil(t, result)

	byID := stepResults(result)
	assert.Equal(t, StepFailed, byID["extract"].Status)
	assert.Contains(t, byID["extract"].Error, "source unreachable")
	assert.Equal(t, StepFailed, byID["transform"].Status)
	assert.Contains(t, byID["transform"].Error, "dependency extract failed")
	assert.Equal(t, StepFailed, byID["load"].Status)
	assert.Equal(t, StepCompleted, byID["audit"].Status)
	assert.Equal(t, WorkflowFailed, result.Status)

	// Aborted steps never reach their agents.
	assert.Zero(t, atomic.LoadInt32(&transformerRan))
	assert.Zero(t, atomic.LoadInt32(&loaderRan))
}

func TestExecuteWorkflow_ConditionalStep(t *testing.T) {
	templates := map[string]workflow.Plan{
		"gated": {
			Name: "gated",
			Steps: []workflow.Step{
				{ID: "gate", Name: "gate", Type: workflow.StepConditional, Condition: "components_found == true", Agents: []string{"builder"}, TimeoutSeconds: 5},
				{ID: "publish", Name: "publish", Type: workflow.StepSequential, Dependencies: []string{"gate"}, Agents: []string{"publisher"}, TimeoutSeconds: 5},
			},
		},
	}

	run := func(t *testing.T, input map[string]interface{}) (*WorkflowResult, int32, error) {
		svc := newTestService(templates, nil)
		var builderRan int32
		svc.RegisterAgent("builder", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
			atomic.AddInt32(&builderRan, 1)
			return "built", nil
		}))
		svc.RegisterAgent("publisher", echoWorker("publisher"))

		plan, err := svc.planner.CreatePlan(context.Background(), planner.Request{TaskType: "gated"})
		require.NoError(t, err)
		result, err := svc.ExecuteWorkflow(context.Background(), plan.ID, input)
		return result, atomic.LoadInt32(&builderRan), err
	}

	t.Run("condition false skips step but not dependents", func(t *testing.T) {
		result, builderRan, err := run(t, map[string]interface{}{"components_found": false})
		require.NoError(t, err)

		byID := stepResults(result)
		assert.Equal(t, StepSkipped, byID["gate"].Status)
		assert.Equal(t, StepCompleted, byID["publish"].Status)
		assert.Equal(t, WorkflowCompleted, result.Status)
		assert.Zero(t, builderRan)
	})

	t.Run("condition true runs step", func(t *testing.T) {
		result, builderRan, err := run(t, map[string]interface{}{"components_found": true})
		require.NoError(t, err)

		byID := stepResults(result)
		assert.Equal(t, StepCompleted, byID["gate"].Status)
		assert.Equal(t, "built", byID["gate"].Output)
		assert.EqualValues(t, 1, builderRan)
	})

	t.Run("unresolvable condition fails step", func(t *testing.T) {
		result, builderRan, err := run(t, nil)
		require.Error(t, err)

		byID := stepResults(result)
		assert.Equal(t, StepFailed, byID["gate"].Status)
		assert.Equal(t, WorkflowFailed, result.Status)
		assert.Zero(t, builderRan)
	})
}

func TestExecuteWorkflow_ConditionOnStepOutput(t *testing.T) {
	ctx := context.Background()
	templates := map[string]workflow.Plan{
		"chained": {
			Name: "chained",
			Steps: []workflow.Step{
				{ID: "analyze", Name: "analyze", Type: workflow.StepSequential, Agents: []string{"analyzer"}, TimeoutSeconds: 5},
				{ID: "generate", Name: "generate", Type: workflow.StepConditional, Condition: "[analyze.ok] == true", Dependencies: []string{"analyze"}, Agents: []string{"generator"}, TimeoutSeconds: 5},
			},
		},
	}
	svc := newTestService(templates, nil)
	svc.RegisterAgent("analyzer", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	}))
	svc.RegisterAgent("generator", echoWorker("generator"))

	plan, err := svc.planner.CreatePlan(ctx, planner.Request{TaskType: "chained"})
	require.NoError(t, err)

	result, err := svc.ExecuteWorkflow(ctx, plan.ID, nil)
	require.NoError(t, err)

	byID := stepResults(result)
	assert.Equal(t, StepCompleted, byID["generate"].Status)
}

func TestExecuteWorkflow_StepTimeout(t *testing.T) {
	ctx := context.Background()
	templates := map[string]workflow.Plan{
		"slow": {
			Name: "slow",
			Steps: []workflow.Step{
				{ID: "crawl", Name: "crawl", Type: workflow.StepSequential, Agents: []string{"sleeper"}, TimeoutSeconds: 1},
			},
		},
	}
	svc := newTestService(templates, nil)
	svc.RegisterAgent("sleeper", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
			return "too late", nil
		}
	}))

	plan, err := svc.planner.CreatePlan(ctx, planner.Request{TaskType: "slow"})
	require.NoError(t, err)

	result, err := svc.ExecuteWorkflow(ctx, plan.ID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepTimeout)

	var timeoutErr *StepTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "crawl", timeoutErr.StepID)

	byID := stepResults(result)
	assert.Equal(t, StepFailed, byID["crawl"].Status)
}

func TestExecuteWorkflow_MultiAgentStep(t *testing.T) {
	ctx := context.Background()
	templates := map[string]workflow.Plan{
		"pair": {
			Name: "pair",
			Steps: []workflow.Step{
				{ID: "duo", Name: "duo", Type: workflow.StepParallel, Agents: []string{"left", "right"}, TimeoutSeconds: 5},
			},
		},
	}

	t.Run("outputs keep agent order", func(t *testing.T) {
		svc := newTestService(templates, nil)
		svc.RegisterAgent("left", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
			return "L", nil
		}))
		svc.RegisterAgent("right", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
			return "R", nil
		}))

		plan, err := svc.planner.CreatePlan(ctx, planner.Request{TaskType: "pair"})
		require.NoError(t, err)

		result, err := svc.ExecuteWorkflow(ctx, plan.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"L", "R"}, result.Steps[0].Output)
	})

	t.Run("any agent failure fails the step", func(t *testing.T) {
		svc := newTestService(templates, nil)
		svc.RegisterAgent("left", echoWorker("left"))
		svc.RegisterAgent("right", agent.WorkerFunc(func(ctx context.Context, tk task.Task) (interface{}, error) {
			return nil, errors.New("right side down")
		}))

		plan, err := svc.planner.CreatePlan(ctx, planner.Request{TaskType: "pair"})
		require.NoError(t, err)

		result, err := svc.ExecuteWorkflow(ctx, plan.ID, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAgentExecution)
		assert.Equal(t, StepFailed, result.Steps[0].Status)
	})
}

func TestExecuteWorkflow_UnknownPlan(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.ExecuteWorkflow(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, workflow.ErrPlanNotFound)
}

func TestExecuteWorkflow_PublishesLifecycleEvents(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var kinds []event.Kind
	pub := event.PublisherFunc(func(e event.Event) {
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
	})

	svc := newTestService(nil, pub)
	svc.RegisterAgent("nl-input", echoWorker("nl-input"))

	plan, err := svc.planner.CreatePlan(ctx, planner.Request{Agents: []string{"nl-input"}})
	require.NoError(t, err)

	_, err = svc.ExecuteWorkflow(ctx, plan.ID, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []event.Kind{
		event.KindWorkflowStarted,
		event.KindStepCompleted,
		event.KindWorkflowFinished,
	}, kinds)
}
