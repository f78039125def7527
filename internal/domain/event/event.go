package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind labels an orchestration lifecycle event.
type Kind string

const (
	KindTaskRouted       Kind = "task.routed"
	KindTaskFailed       Kind = "task.failed"
	KindSessionCreated   Kind = "session.created"
	KindWorkflowStarted  Kind = "workflow.started"
	KindStepCompleted    Kind = "step.completed"
	KindStepFailed       Kind = "step.failed"
	KindStepSkipped      Kind = "step.skipped"
	KindWorkflowFinished Kind = "workflow.finished"
)

// Event is one orchestration lifecycle fact, fanned out to any number of
// observers.
type Event struct {
	ID         string                 `json:"id"`
	Kind       Kind                   `json:"kind"`
	OccurredAt time.Time              `json:"occurredAt"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New builds an event of the given kind.
func New(kind Kind, fields map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Fields:     fields,
	}
}

// Publisher fans events out to observers. Implementations must not block
// the publishing goroutine.
type Publisher interface {
	Publish(e Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Nop returns a publisher that drops every event.
func Nop() Publisher {
	return PublisherFunc(func(Event) {})
}
