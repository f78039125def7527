package planner

import (
	"github.com/agentflow/agentflow/internal/domain/workflow"
)

// Templates returns the built-in plan shapes keyed by task type. Step
// timeouts that are left at zero inherit the planner's default.
func Templates() map[string]workflow.Plan {
	return map[string]workflow.Plan{
		"code_generation": {
			Name: "component-pipeline",
			Steps: []workflow.Step{
				{
					ID:             "analyze",
					Name:           "analyze",
					Type:           workflow.StepSequential,
					Agents:         []string{"NLInputAgent"},
					TimeoutSeconds: 60,
				},
				{
					ID:             "select-components",
					Name:           "select-components",
					Type:           workflow.StepParallel,
					Agents:         []string{"ComponentDeciderAgent", "MatchRateAgent", "SearchAgent"},
					Dependencies:   []string{"analyze"},
					TimeoutSeconds: 120,
				},
				{
					ID:             "generate",
					Name:           "generate",
					Type:           workflow.StepConditional,
					Agents:         []string{"GenerationAgent", "AssemblyAgent"},
					Dependencies:   []string{"select-components"},
					Condition:      "components_found == true",
					TimeoutSeconds: 300,
				},
				{
					ID:             "package",
					Name:           "package",
					Type:           workflow.StepSequential,
					Agents:         []string{"DownloadAgent"},
					Dependencies:   []string{"generate"},
					TimeoutSeconds: 60,
				},
			},
		},
		"analysis": {
			Name: "analysis-pipeline",
			Steps: []workflow.Step{
				{
					ID:             "analyze",
					Name:           "analyze",
					Type:           workflow.StepSequential,
					Agents:         []string{"NLInputAgent"},
					TimeoutSeconds: 60,
				},
				{
					ID:             "parse",
					Name:           "parse",
					Type:           workflow.StepSequential,
					Agents:         []string{"ParserAgent"},
					Dependencies:   []string{"analyze"},
					TimeoutSeconds: 60,
				},
			},
		},
	}
}
