package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/agentflow/agentflow/internal/domain/task"
)

// ErrNotFound signals an unknown session id.
var ErrNotFound = errors.New("session not found")

// Session groups the tasks routed on behalf of one caller. Appending a task
// bumps LastActivityAt; sessions are never deleted automatically, their
// lifecycle is caller-driven.
type Session struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastActivityAt time.Time   `json:"lastActivityAt"`
	Tasks          []task.Task `json:"tasks"`
}

// New creates a session for userID; userID may be empty for anonymous
// callers.
func New(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		CreatedAt:      now,
		LastActivityAt: now,
		Tasks:          []task.Task{},
	}
}
