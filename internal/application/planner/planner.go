package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentflow/agentflow/internal/domain/workflow"
)

// DefaultStepTimeoutSeconds applies to steps that declare no timeout.
const DefaultStepTimeoutSeconds = 300

// ErrInvalidRequest marks plan creation failures the caller can fix:
// malformed requests and plans that do not validate.
var ErrInvalidRequest = errors.New("invalid plan request")

// Request selects either a named template by task type or a dynamic
// synthesis over an ordered agent list. Templates win when both are given.
type Request struct {
	Name     string
	TaskType string
	Agents   []string
}

// Service builds validated workflow plans. Plans it returns are always
// validated; execution never re-checks the graph.
type Service struct {
	templates      map[string]workflow.Plan
	repo           workflow.PlanRepository
	defaultTimeout int
	logger         zerolog.Logger
}

// NewService creates a planner over the given template table.
func NewService(templates map[string]workflow.Plan, repo workflow.PlanRepository, defaultTimeoutSeconds int, logger zerolog.Logger) *Service {
	if defaultTimeoutSeconds <= 0 {
		defaultTimeoutSeconds = DefaultStepTimeoutSeconds
	}
	return &Service{
		templates:      templates,
		repo:           repo,
		defaultTimeout: defaultTimeoutSeconds,
		logger:         logger.With().Str("service", "planner").Logger(),
	}
}

// CreatePlan builds a plan from the request, validates it, rewrites
// dependency-free sequential steps to parallel, computes the estimated
// duration and stores the result.
func (s *Service) CreatePlan(ctx context.Context, req Request) (*workflow.Plan, error) {
	var (
		plan   *workflow.Plan
		source string
	)
	if tpl, ok := s.templates[req.TaskType]; ok {
		plan = s.instantiate(tpl)
		source = "template"
	} else if len(req.Agents) > 0 {
		plan = s.synthesize(req.Agents)
		source = "dynamic"
	} else {
		return nil, fmt.Errorf("%w: no template for task type %q and no agents given", ErrInvalidRequest, req.TaskType)
	}
	if req.Name != "" {
		plan.Name = req.Name
	}

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// Steps with no prerequisite can safely start together.
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if len(step.Dependencies) == 0 && step.Type == workflow.StepSequential {
			step.Type = workflow.StepParallel
		}
	}
	plan.EstimatedDurationSeconds = plan.CriticalPathSeconds()

	if err := s.repo.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}

	s.logger.Info().
		Str("plan_id", plan.ID).
		Str("name", plan.Name).
		Str("source", source).
		Int("steps", len(plan.Steps)).
		Int("estimated_duration_seconds", plan.EstimatedDurationSeconds).
		Msg("plan created")

	return plan, nil
}

// GetPlan retrieves a stored plan by id.
func (s *Service) GetPlan(ctx context.Context, planID string) (*workflow.Plan, error) {
	plan, err := s.repo.Get(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrPlanNotFound, planID)
	}
	return plan, nil
}

// instantiate deep-copies a template into a fresh plan.
func (s *Service) instantiate(tpl workflow.Plan) *workflow.Plan {
	steps := make([]workflow.Step, len(tpl.Steps))
	for i, step := range tpl.Steps {
		step.Agents = append([]string(nil), step.Agents...)
		step.Dependencies = append([]string(nil), step.Dependencies...)
		if step.TimeoutSeconds == 0 {
			step.TimeoutSeconds = s.defaultTimeout
		}
		steps[i] = step
	}
	return &workflow.Plan{
		ID:    uuid.NewString(),
		Name:  tpl.Name,
		Steps: steps,
	}
}

// synthesize turns an ordered agent list into a sequential chain: step k
// depends on step k-1.
func (s *Service) synthesize(agents []string) *workflow.Plan {
	steps := make([]workflow.Step, len(agents))
	for i, agent := range agents {
		step := workflow.Step{
			ID:             fmt.Sprintf("step-%d", i+1),
			Name:           agent,
			Type:           workflow.StepSequential,
			Agents:         []string{agent},
			TimeoutSeconds: s.defaultTimeout,
		}
		if i > 0 {
			step.Dependencies = []string{fmt.Sprintf("step-%d", i)}
		}
		steps[i] = step
	}
	return &workflow.Plan{
		ID:    uuid.NewString(),
		Name:  "dynamic-pipeline",
		Steps: steps,
	}
}
