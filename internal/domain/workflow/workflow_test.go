package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearPlan() *Plan {
	return &Plan{
		ID:   "plan-1",
		Name: "linear",
		Steps: []Step{
			{ID: "a", Name: "a", Type: StepSequential, Agents: []string{"NLInputAgent"}, TimeoutSeconds: 30},
			{ID: "b", Name: "b", Type: StepSequential, Agents: []string{"ParserAgent"}, Dependencies: []string{"a"}, TimeoutSeconds: 60},
			{ID: "c", Name: "c", Type: StepSequential, Agents: []string{"GenerationAgent"}, Dependencies: []string{"b"}, TimeoutSeconds: 30},
		},
	}
}

func TestPlan_Validate(t *testing.T) {
	t.Run("linear plan passes", func(t *testing.T) {
		require.NoError(t, linearPlan().Validate())
	})

	t.Run("cycle is rejected and named", func(t *testing.T) {
		p := linearPlan()
		// Close the loop: a now depends on c.
		p.Steps[0].Dependencies = []string{"c"}

		err := p.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCyclicDependency)

		var cerr *CycleError
		require.ErrorAs(t, err, &cerr)
		assert.Len(t, cerr.Cycle, 4)
		assert.Equal(t, cerr.Cycle[0], cerr.Cycle[len(cerr.Cycle)-1])
		assert.ElementsMatch(t, []string{"a", "b", "c"}, cerr.Cycle[:3])
	})

	t.Run("self dependency is a cycle", func(t *testing.T) {
		p := &Plan{
			ID:   "p",
			Name: "self",
			Steps: []Step{
				{ID: "a", Type: StepSequential, Agents: []string{"x"}, Dependencies: []string{"a"}},
			},
		}
		assert.ErrorIs(t, p.Validate(), ErrCyclicDependency)
	})

	t.Run("unknown dependency is rejected", func(t *testing.T) {
		p := linearPlan()
		p.Steps[2].Dependencies = []string{"ghost"}
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown step")
	})

	t.Run("duplicate step id is rejected", func(t *testing.T) {
		p := linearPlan()
		p.Steps[2].ID = "a"
		assert.Error(t, p.Validate())
	})

	t.Run("conditional step requires a condition", func(t *testing.T) {
		p := linearPlan()
		p.Steps[1].Type = StepConditional
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "condition is required")
	})

	t.Run("step without agents is rejected", func(t *testing.T) {
		p := linearPlan()
		p.Steps[0].Agents = nil
		assert.Error(t, p.Validate())
	})

	t.Run("empty plan is rejected", func(t *testing.T) {
		p := &Plan{ID: "p", Name: "empty"}
		assert.Error(t, p.Validate())
	})

	t.Run("invalid step type is rejected", func(t *testing.T) {
		p := linearPlan()
		p.Steps[0].Type = StepType("LOOP")
		assert.Error(t, p.Validate())
	})
}

func TestPlan_CriticalPathSeconds(t *testing.T) {
	t.Run("chain sums timeouts", func(t *testing.T) {
		assert.Equal(t, 120, linearPlan().CriticalPathSeconds())
	})

	t.Run("parallel roots take the max", func(t *testing.T) {
		p := &Plan{
			ID:   "p",
			Name: "fan",
			Steps: []Step{
				{ID: "a", Type: StepParallel, Agents: []string{"x"}, TimeoutSeconds: 10},
				{ID: "b", Type: StepParallel, Agents: []string{"y"}, TimeoutSeconds: 40},
				{ID: "c", Type: StepParallel, Agents: []string{"z"}, TimeoutSeconds: 25},
			},
		}
		require.NoError(t, p.Validate())
		assert.Equal(t, 40, p.CriticalPathSeconds())
	})

	t.Run("diamond follows the longest branch", func(t *testing.T) {
		p := &Plan{
			ID:   "p",
			Name: "diamond",
			Steps: []Step{
				{ID: "root", Type: StepSequential, Agents: []string{"x"}, TimeoutSeconds: 10},
				{ID: "left", Type: StepSequential, Agents: []string{"x"}, Dependencies: []string{"root"}, TimeoutSeconds: 50},
				{ID: "right", Type: StepSequential, Agents: []string{"x"}, Dependencies: []string{"root"}, TimeoutSeconds: 20},
				{ID: "join", Type: StepSequential, Agents: []string{"x"}, Dependencies: []string{"left", "right"}, TimeoutSeconds: 5},
			},
		}
		require.NoError(t, p.Validate())
		assert.Equal(t, 65, p.CriticalPathSeconds())
	})
}

func TestStepType_Valid(t *testing.T) {
	assert.True(t, StepSequential.Valid())
	assert.True(t, StepParallel.Valid())
	assert.True(t, StepConditional.Valid())
	assert.False(t, StepType("").Valid())
	assert.False(t, StepType("LOOP").Valid())
}

func TestCycleError_Unwrapping(t *testing.T) {
	err := error(&CycleError{Cycle: []string{"a", "b", "a"}})
	assert.True(t, errors.Is(err, ErrCyclicDependency))
	assert.Contains(t, err.Error(), "a -> b -> a")
}
