package orchestrator

import (
	"errors"
	"strings"

	"github.com/Knetic/govaluate"
)

// EvaluateCondition evaluates a boolean expression against the workflow
// data map. Empty condition returns true. Supports "true"/"false" literals.
func EvaluateCondition(condition string, data map[string]interface{}) (bool, error) {
	cond := strings.TrimSpace(condition)
	if cond == "" {
		return true, nil
	}
	switch strings.ToLower(cond) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(buildConditionParams(data))
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, errors.New("condition did not evaluate to boolean")
	}
	return b, nil
}

func buildConditionParams(data map[string]interface{}) map[string]interface{} {
	params := map[string]interface{}{}
	for k, v := range data {
		params[k] = v
	}
	flattenParams("", data, params)
	return params
}

// flattenParams exposes nested map values under dotted keys so conditions
// can reference step output fields directly.
func flattenParams(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch vv := v.(type) {
		case map[string]interface{}:
			flattenParams(key, vv, out)
		default:
			out[key] = vv
		}
	}
}
