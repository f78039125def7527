package task

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPriority is assigned when the caller does not set one.
const DefaultPriority = 3

// TypeGeneral is the task type assigned when the caller does not set one.
const TypeGeneral = "general"

// Task is a unit of work submitted by a caller. Once normalized it is
// immutable: the orchestration core only reads it.
type Task struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Priority    int                    `json:"priority"`
	CreatedAt   time.Time              `json:"createdAt"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// Normalized returns a copy of the task with defaults filled in: a generated
// id, the general type, the default priority and a creation timestamp.
func (t Task) Normalized() Task {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Type == "" {
		t.Type = TypeGeneral
	}
	if t.Priority <= 0 {
		t.Priority = DefaultPriority
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Context == nil {
		t.Context = map[string]interface{}{}
	}
	return t
}
