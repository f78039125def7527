package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// ErrAgentExecution is matched by errors.Is for any *AgentExecutionError.
var ErrAgentExecution = errors.New("agent execution failed")

// ErrStepTimeout is matched by errors.Is for any *StepTimeoutError.
var ErrStepTimeout = errors.New("step timed out")

// AgentExecutionError wraps the error returned by an agent worker. The
// failure is counted in the metrics and propagated; routing never retries.
type AgentExecutionError struct {
	Agent string
	Err   error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent %s execution failed: %v", e.Agent, e.Err)
}

func (e *AgentExecutionError) Unwrap() error { return e.Err }

func (e *AgentExecutionError) Is(target error) bool { return target == ErrAgentExecution }

// StepTimeoutError reports a workflow step that exceeded its deadline.
type StepTimeoutError struct {
	StepID  string
	Timeout time.Duration
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step %s timed out after %s", e.StepID, e.Timeout)
}

func (e *StepTimeoutError) Is(target error) bool { return target == ErrStepTimeout }
