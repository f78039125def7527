package agent

import (
	"context"
	"errors"
	"time"

	"github.com/agentflow/agentflow/internal/domain/task"
)

// ErrNotFound signals that a name has no registry entry. Routing never
// retries it.
var ErrNotFound = errors.New("agent not found")

// Worker is the contract every registered agent fulfils. Execute performs
// the task and returns an arbitrary payload; failure travels on the error
// return, never as a sentinel value inside the payload.
type Worker interface {
	Execute(ctx context.Context, t task.Task) (interface{}, error)
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(ctx context.Context, t task.Task) (interface{}, error)

func (f WorkerFunc) Execute(ctx context.Context, t task.Task) (interface{}, error) {
	return f(ctx, t)
}

// Agent describes a registered worker: its unique name and declared
// capability tags. Re-registering the same name replaces the whole entry.
type Agent struct {
	Name         string    `json:"name"`
	Capabilities []string  `json:"capabilities,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}
