package workflow

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . PlanRepository

import (
	"context"
	"errors"
)

// ErrPlanNotFound signals an unknown plan id.
var ErrPlanNotFound = errors.New("plan not found")

// PlanRepository stores validated plans so callers can execute them later
// by id. Get returns (nil, nil) for an unknown id.
type PlanRepository interface {
	Save(ctx context.Context, plan *Plan) error
	Get(ctx context.Context, planID string) (*Plan, error)
}
