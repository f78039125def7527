package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentflow/agentflow/internal/domain/session"
	"github.com/agentflow/agentflow/internal/domain/task"
)

// SessionRepository keeps sessions in process memory. Each session carries
// its own lock, so appends to one session never block another.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu   sync.Mutex
	sess session.Session
}

// NewSessionRepository creates an empty in-memory session store.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*sessionEntry)}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.Tasks = append([]task.Task(nil), s.Tasks...)
	r.sessions[s.ID] = &sessionEntry{sess: cp}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	cp := entry.sess
	cp.Tasks = append([]task.Task(nil), entry.sess.Tasks...)
	return &cp, nil
}

func (r *SessionRepository) AppendTask(ctx context.Context, sessionID string, t task.Task) error {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrNotFound, sessionID)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.sess.Tasks = append(entry.sess.Tasks, t)
	entry.sess.LastActivityAt = time.Now().UTC()
	return nil
}

func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}
