package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCondition(t *testing.T) {
	data := map[string]interface{}{
		"components_found": true,
		"match_rate":       0.92,
		"analysis": map[string]interface{}{
			"ok":    true,
			"count": 3.0,
		},
	}

	cases := []struct {
		name      string
		condition string
		want      bool
	}{
		{"empty is true", "", true},
		{"literal true", "true", true},
		{"literal false", "false", false},
		{"boolean parameter", "components_found == true", true},
		{"numeric comparison", "match_rate > 0.9", true},
		{"numeric comparison false", "match_rate > 0.95", false},
		{"flattened nested key", "[analysis.ok] == true", true},
		{"nested numeric", "[analysis.count] >= 3", true},
		{"combined", "components_found && match_rate > 0.5", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateCondition(tc.condition, data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateCondition_Errors(t *testing.T) {
	t.Run("unknown parameter", func(t *testing.T) {
		_, err := EvaluateCondition("missing == true", map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("parse failure", func(t *testing.T) {
		_, err := EvaluateCondition("((", map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("non-boolean result", func(t *testing.T) {
		_, err := EvaluateCondition("match_rate + 1", map[string]interface{}{"match_rate": 0.5})
		assert.Error(t, err)
	})
}
