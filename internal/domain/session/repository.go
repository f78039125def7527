package session

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/agentflow/agentflow/internal/domain/task"
)

// Repository defines persistence for sessions. Get returns (nil, nil) for an
// unknown id. AppendTask must serialize concurrent appends to the same
// session while leaving distinct sessions independent.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	AppendTask(ctx context.Context, sessionID string, t task.Task) error
	Count(ctx context.Context) (int, error)
}
