package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StepType declares how a step relates to its siblings during execution.
type StepType string

const (
	StepSequential  StepType = "SEQUENTIAL"
	StepParallel    StepType = "PARALLEL"
	StepConditional StepType = "CONDITIONAL"
)

// Valid reports whether the step type is one of the declared constants.
func (t StepType) Valid() bool {
	switch t {
	case StepSequential, StepParallel, StepConditional:
		return true
	default:
		return false
	}
}

// ErrCyclicDependency is matched by errors.Is for any *CycleError.
var ErrCyclicDependency = errors.New("cyclic dependency")

// CycleError reports a dependency cycle between plan steps.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// Step is one unit of a plan. Dependencies lists the ids of steps that must
// complete before this one starts; a step with no dependencies is a root.
type Step struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           StepType `json:"type"`
	Agents         []string `json:"agents"`
	Dependencies   []string `json:"dependencies,omitempty"`
	Condition      string   `json:"condition,omitempty"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
}

// Timeout returns the step timeout as a duration. Zero means no timeout.
func (s *Step) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Plan is a validated DAG of steps. Plans are immutable once validated;
// execution never re-checks the graph.
type Plan struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Steps                    []Step `json:"steps"`
	EstimatedDurationSeconds int    `json:"estimatedDurationSeconds"`
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.Steps = make([]Step, len(p.Steps))
	for i, step := range p.Steps {
		step.Agents = append([]string(nil), step.Agents...)
		step.Dependencies = append([]string(nil), step.Dependencies...)
		out.Steps[i] = step
	}
	return &out
}

// Validate checks plan structure and rejects dependency cycles. Runs once,
// synchronously, when the plan is created.
func (p *Plan) Validate() error {
	if p == nil {
		return errors.New("plan is nil")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if len(p.Steps) == 0 {
		return errors.New("steps are required")
	}

	byID := make(map[string]*Step, len(p.Steps))
	for i := range p.Steps {
		step := &p.Steps[i]
		if step.ID == "" {
			return errors.New("step id is required")
		}
		if _, ok := byID[step.ID]; ok {
			return fmt.Errorf("duplicate step id: %s", step.ID)
		}
		byID[step.ID] = step
		if !step.Type.Valid() {
			return fmt.Errorf("step %s: invalid type %q", step.ID, step.Type)
		}
		if len(step.Agents) == 0 {
			return fmt.Errorf("step %s: at least one agent is required", step.ID)
		}
		if step.Type == StepConditional && step.Condition == "" {
			return fmt.Errorf("step %s: condition is required for conditional steps", step.ID)
		}
		if step.TimeoutSeconds < 0 {
			return fmt.Errorf("step %s: negative timeout", step.ID)
		}
	}
	for i := range p.Steps {
		step := &p.Steps[i]
		for _, dep := range step.Dependencies {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("step %s depends on unknown step %s", step.ID, dep)
			}
		}
	}
	return p.checkAcyclic(byID)
}

// checkAcyclic runs depth-first search over the dependency relation with a
// visited set and a recursion stack; revisiting a step already on the stack
// names the cycle.
func (p *Plan) checkAcyclic(byID map[string]*Step) error {
	visited := make(map[string]bool, len(p.Steps))
	inStack := make(map[string]bool, len(p.Steps))
	path := make([]string, 0, len(p.Steps))

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		visited[id] = true
		inStack[id] = true
		path = append(path, id)

		for _, dep := range byID[id].Dependencies {
			if inStack[dep] {
				start := 0
				for i, v := range path {
					if v == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), dep)
				return &CycleError{Cycle: cycle}
			}
			if !visited[dep] {
				if cerr := visit(dep); cerr != nil {
					return cerr
				}
			}
		}

		inStack[id] = false
		path = path[:len(path)-1]
		return nil
	}

	for i := range p.Steps {
		if !visited[p.Steps[i].ID] {
			if cerr := visit(p.Steps[i].ID); cerr != nil {
				return cerr
			}
		}
	}
	return nil
}

// CriticalPathSeconds returns the cost of the most expensive dependency
// chain: a step's cost is its own timeout plus the costliest of its
// dependencies. Only meaningful on a validated plan.
func (p *Plan) CriticalPathSeconds() int {
	byID := make(map[string]*Step, len(p.Steps))
	for i := range p.Steps {
		byID[p.Steps[i].ID] = &p.Steps[i]
	}

	memo := make(map[string]int, len(p.Steps))
	var cost func(id string) int
	cost = func(id string) int {
		if c, ok := memo[id]; ok {
			return c
		}
		step := byID[id]
		longest := 0
		for _, dep := range step.Dependencies {
			if c := cost(dep); c > longest {
				longest = c
			}
		}
		c := step.TimeoutSeconds + longest
		memo[id] = c
		return c
	}

	total := 0
	for i := range p.Steps {
		if c := cost(p.Steps[i].ID); c > total {
			total = c
		}
	}
	return total
}
