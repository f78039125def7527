package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouting(t *testing.T) {
	t.Run("valid rule", func(t *testing.T) {
		r, err := NewRouting("code-generation", `code|implement`, 0.9, "GenerationAgent")
		require.NoError(t, err)
		assert.Equal(t, "code-generation", r.Name)
		assert.Equal(t, 0.9, r.Confidence)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewRouting("", `code`, 0.9, "GenerationAgent")
		assert.Error(t, err)
	})

	t.Run("rejects missing agents", func(t *testing.T) {
		_, err := NewRouting("r", `code`, 0.9)
		assert.Error(t, err)
	})

	t.Run("rejects confidence out of range", func(t *testing.T) {
		_, err := NewRouting("r", `code`, 1.2, "GenerationAgent")
		assert.Error(t, err)
		_, err = NewRouting("r", `code`, -0.1, "GenerationAgent")
		assert.Error(t, err)
	})

	t.Run("rejects bad pattern", func(t *testing.T) {
		_, err := NewRouting("r", `code(`, 0.9, "GenerationAgent")
		assert.Error(t, err)
	})
}

func TestRouting_Matches(t *testing.T) {
	r := MustRouting("code-generation", `code|implement|develop|program|build`, 0.9,
		"GenerationAgent", "AssemblyAgent")

	assert.True(t, r.Matches("Please write code to implement a login form"))
	assert.True(t, r.Matches("BUILD the deployment bundle"))
	assert.False(t, r.Matches("summarize yesterday's meeting"))
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	require.NotEmpty(t, defaults)

	// First rule wins first-seen ordering for ties, so the code rule must
	// stay in front.
	assert.Equal(t, "code-generation", defaults[0].Name)

	for _, r := range defaults {
		assert.NotEmpty(t, r.Agents, r.Name)
		assert.GreaterOrEqual(t, r.Confidence, 0.0, r.Name)
		assert.LessOrEqual(t, r.Confidence, 1.0, r.Name)
	}
}
