package memory

import (
	"context"
	"sync"

	"github.com/agentflow/agentflow/internal/domain/workflow"
)

// PlanRepository keeps workflow plans in process memory.
type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*workflow.Plan
}

// NewPlanRepository creates an empty in-memory plan store.
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{plans: make(map[string]*workflow.Plan)}
}

func (r *PlanRepository) Save(ctx context.Context, plan *workflow.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = plan.Clone()
	return nil
}

func (r *PlanRepository) Get(ctx context.Context, planID string) (*workflow.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[planID]
	if !ok {
		return nil, nil
	}
	return plan.Clone(), nil
}
