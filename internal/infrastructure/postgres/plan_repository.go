package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentflow/agentflow/internal/domain/workflow"
)

// PlanRepository implements workflow.PlanRepository.
type PlanRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

func (r *PlanRepository) Save(ctx context.Context, plan *workflow.Plan) error {
	steps, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode plan steps: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO plans (plan_id, name, steps, estimated_duration_seconds, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (plan_id) DO UPDATE
		SET name=EXCLUDED.name, steps=EXCLUDED.steps, estimated_duration_seconds=EXCLUDED.estimated_duration_seconds
	`, plan.ID, plan.Name, steps, plan.EstimatedDurationSeconds, time.Now().UTC())
	return err
}

func (r *PlanRepository) Get(ctx context.Context, planID string) (*workflow.Plan, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT plan_id, name, steps, estimated_duration_seconds
		FROM plans WHERE plan_id=$1
	`, planID)
	var p workflow.Plan
	var steps json.RawMessage
	if err := row.Scan(&p.ID, &p.Name, &steps, &p.EstimatedDurationSeconds); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &p.Steps); err != nil {
			return nil, fmt.Errorf("failed to decode plan steps: %w", err)
		}
	}
	return &p, nil
}
