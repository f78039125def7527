package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/agentflow/agentflow/internal/domain/agent"
	"github.com/agentflow/agentflow/internal/domain/event"
	"github.com/agentflow/agentflow/internal/domain/task"
	"github.com/agentflow/agentflow/internal/domain/workflow"
	"github.com/agentflow/agentflow/internal/infrastructure/tracer"
)

// StepStatus tracks one step through a workflow run.
type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
	StepSkipped   StepStatus = "SKIPPED"
)

// Workflow run outcomes.
const (
	WorkflowCompleted = "COMPLETED"
	WorkflowFailed    = "FAILED"
)

// StepResult is the outcome of one step in a run.
type StepResult struct {
	StepID     string      `json:"stepId"`
	Name       string      `json:"name"`
	Status     StepStatus  `json:"status"`
	Output     interface{} `json:"output,omitempty"`
	Error      string      `json:"error,omitempty"`
	DurationMs float64     `json:"durationMs"`

	err error
}

// WorkflowResult aggregates the step outcomes of one run. Steps keep plan
// order. Data holds the input merged with every completed step's output,
// keyed by step id.
type WorkflowResult struct {
	PlanID     string                 `json:"planId"`
	PlanName   string                 `json:"planName"`
	Status     string                 `json:"status"`
	Steps      []StepResult           `json:"steps"`
	Data       map[string]interface{} `json:"data"`
	DurationMs float64                `json:"durationMs"`
}

// ExecuteWorkflow runs a stored plan. Ready steps run in parallel batches;
// a failed step aborts its dependents while independent branches keep
// going. A skipped conditional counts as satisfied for its dependents.
// Returns the aggregate result plus the first step failure, if any.
func (s *Service) ExecuteWorkflow(ctx context.Context, planID string, input map[string]interface{}) (*WorkflowResult, error) {
	plan, err := s.planner.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	ctx, span := tracer.StartSpan(ctx, "orchestrator.execute_workflow",
		trace.WithAttributes(
			tracer.StringAttr("plan.id", plan.ID),
			tracer.IntAttr("plan.steps", len(plan.Steps)),
		),
	)
	defer span.End()

	s.logger.Info().
		Str("plan_id", plan.ID).
		Str("name", plan.Name).
		Int("steps", len(plan.Steps)).
		Msg("workflow started")
	s.events.Publish(event.New(event.KindWorkflowStarted, map[string]interface{}{
		"planId": plan.ID,
		"name":   plan.Name,
	}))

	data := make(map[string]interface{}, len(input))
	for k, v := range input {
		data[k] = v
	}

	results := make(map[string]*StepResult, len(plan.Steps))
	for _, st := range plan.Steps {
		results[st.ID] = &StepResult{StepID: st.ID, Name: st.Name, Status: StepPending}
	}

	var firstErr error
	for {
		aborted := s.abortBlocked(plan, results, &firstErr)

		var batch []workflow.Step
		for _, st := range plan.Steps {
			if results[st.ID].Status != StepPending {
				continue
			}
			if depsSatisfied(st, results) {
				batch = append(batch, st)
			}
		}
		if len(batch) == 0 {
			if aborted {
				continue
			}
			break
		}

		// Conditions are evaluated serially against the data gathered so
		// far; only the survivors run concurrently.
		var runnable []workflow.Step
		for _, st := range batch {
			if st.Type != workflow.StepConditional {
				runnable = append(runnable, st)
				continue
			}
			pass, err := EvaluateCondition(st.Condition, data)
			if err != nil {
				res := results[st.ID]
				res.Status = StepFailed
				res.Error = err.Error()
				res.err = fmt.Errorf("step %s: invalid condition: %w", st.ID, err)
				if firstErr == nil {
					firstErr = res.err
				}
				s.events.Publish(event.New(event.KindStepFailed, map[string]interface{}{
					"planId": plan.ID,
					"stepId": st.ID,
					"error":  res.Error,
				}))
				continue
			}
			if !pass {
				results[st.ID].Status = StepSkipped
				s.logger.Debug().
					Str("plan_id", plan.ID).
					Str("step_id", st.ID).
					Str("condition", st.Condition).
					Msg("step skipped")
				s.events.Publish(event.New(event.KindStepSkipped, map[string]interface{}{
					"planId":    plan.ID,
					"stepId":    st.ID,
					"condition": st.Condition,
				}))
				continue
			}
			runnable = append(runnable, st)
		}
		if len(runnable) == 0 {
			continue
		}

		var wg sync.WaitGroup
		for _, st := range runnable {
			res := results[st.ID]
			res.Status = StepRunning
			wg.Add(1)
			go func(st workflow.Step, res *StepResult, snapshot map[string]interface{}) {
				defer wg.Done()
				s.runStep(ctx, st, snapshot, res)
			}(st, res, copyData(data))
		}
		wg.Wait()

		for _, st := range runnable {
			res := results[st.ID]
			switch res.Status {
			case StepCompleted:
				data[st.ID] = res.Output
				s.events.Publish(event.New(event.KindStepCompleted, map[string]interface{}{
					"planId":     plan.ID,
					"stepId":     st.ID,
					"durationMs": res.DurationMs,
				}))
			case StepFailed:
				if firstErr == nil {
					firstErr = res.err
				}
				s.logger.Error().
					Str("plan_id", plan.ID).
					Str("step_id", st.ID).
					Str("error", res.Error).
					Msg("step failed")
				s.events.Publish(event.New(event.KindStepFailed, map[string]interface{}{
					"planId": plan.ID,
					"stepId": st.ID,
					"error":  res.Error,
				}))
			}
		}
	}

	steps := make([]StepResult, 0, len(plan.Steps))
	status := WorkflowCompleted
	for _, st := range plan.Steps {
		res := results[st.ID]
		if res.Status == StepFailed {
			status = WorkflowFailed
		}
		steps = append(steps, *res)
	}

	result := &WorkflowResult{
		PlanID:     plan.ID,
		PlanName:   plan.Name,
		Status:     status,
		Steps:      steps,
		Data:       data,
		DurationMs: durationMs(time.Since(started)),
	}
	s.events.Publish(event.New(event.KindWorkflowFinished, map[string]interface{}{
		"planId":     plan.ID,
		"status":     status,
		"durationMs": result.DurationMs,
	}))

	if firstErr != nil {
		tracer.RecordError(span, firstErr)
		s.logger.Error().Err(firstErr).Str("plan_id", plan.ID).Msg("workflow failed")
		return result, firstErr
	}
	tracer.SetOK(span)
	s.logger.Info().
		Str("plan_id", plan.ID).
		Float64("duration_ms", result.DurationMs).
		Msg("workflow completed")
	return result, nil
}

// abortBlocked fails every pending step that depends on a failed step, so
// failures cascade without running anything downstream of them.
func (s *Service) abortBlocked(plan *workflow.Plan, results map[string]*StepResult, firstErr *error) bool {
	aborted := false
	for _, st := range plan.Steps {
		res := results[st.ID]
		if res.Status != StepPending {
			continue
		}
		for _, dep := range st.Dependencies {
			if results[dep].Status != StepFailed {
				continue
			}
			res.Status = StepFailed
			res.Error = fmt.Sprintf("dependency %s failed", dep)
			res.err = fmt.Errorf("step %s aborted: dependency %s failed", st.ID, dep)
			if *firstErr == nil {
				*firstErr = res.err
			}
			s.events.Publish(event.New(event.KindStepFailed, map[string]interface{}{
				"planId": plan.ID,
				"stepId": st.ID,
				"error":  res.Error,
			}))
			aborted = true
			break
		}
	}
	return aborted
}

func depsSatisfied(st workflow.Step, results map[string]*StepResult) bool {
	for _, dep := range st.Dependencies {
		switch results[dep].Status {
		case StepCompleted, StepSkipped:
		default:
			return false
		}
	}
	return true
}

// runStep invokes the step's agents against a snapshot of the workflow
// data. Multi-agent steps fan out concurrently and collect outputs in agent
// order; a single agent's output is stored bare.
func (s *Service) runStep(ctx context.Context, step workflow.Step, data map[string]interface{}, res *StepResult) {
	started := time.Now()

	ctx, span := tracer.StartSpan(ctx, "orchestrator.step",
		trace.WithAttributes(
			tracer.StringAttr("step.id", step.ID),
			tracer.StringAttr("step.type", string(step.Type)),
			tracer.IntAttr("step.agents", len(step.Agents)),
		),
	)
	defer span.End()

	if d := step.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	stepTask := task.Task{
		Type:        "workflow_step",
		Description: step.Name,
		Context:     data,
	}.Normalized()

	var output interface{}
	var err error
	if len(step.Agents) == 1 {
		output, err = s.invokeAgent(ctx, step.Agents[0], stepTask)
	} else {
		output, err = s.invokeAll(ctx, step.Agents, stepTask)
	}

	res.DurationMs = durationMs(time.Since(started))
	if err != nil {
		if step.Timeout() > 0 && errors.Is(err, context.DeadlineExceeded) {
			err = &StepTimeoutError{StepID: step.ID, Timeout: step.Timeout()}
		}
		res.Status = StepFailed
		res.Error = err.Error()
		res.err = fmt.Errorf("step %s: %w", step.ID, err)
		tracer.RecordError(span, err)
		return
	}
	res.Status = StepCompleted
	res.Output = output
	tracer.SetOK(span)
}

// invokeAgent runs one worker and enforces the context deadline even when
// the worker ignores it.
func (s *Service) invokeAgent(ctx context.Context, name string, t task.Task) (interface{}, error) {
	w, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", agent.ErrNotFound, name)
	}
	type reply struct {
		out interface{}
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		out, err := w.Execute(ctx, t)
		ch <- reply{out: out, err: err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, &AgentExecutionError{Agent: name, Err: r.err}
		}
		return r.out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) invokeAll(ctx context.Context, agents []string, t task.Task) (interface{}, error) {
	outputs := make([]interface{}, len(agents))
	errs := make([]error, len(agents))
	var wg sync.WaitGroup
	for i, name := range agents {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			outputs[i], errs[i] = s.invokeAgent(ctx, name, t)
		}(i, name)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outputs, nil
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
