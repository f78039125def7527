package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentflow/agentflow/internal/domain/session"
	"github.com/agentflow/agentflow/internal/domain/task"
)

// SessionRepository implements session.Repository.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	tasks := s.Tasks
	if tasks == nil {
		tasks = []task.Task{}
	}
	encoded, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode session tasks: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, created_at, last_activity_at, tasks)
		VALUES ($1,$2,$3,$4,$5)
	`, s.ID, s.UserID, s.CreatedAt, s.LastActivityAt, encoded)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT session_id, user_id, created_at, last_activity_at, tasks
		FROM sessions WHERE session_id=$1
	`, sessionID)
	return scanSession(row)
}

// AppendTask pushes the task onto the session's JSONB task array. The row
// lock taken by UPDATE serializes concurrent appends to the same session.
func (r *SessionRepository) AppendTask(ctx context.Context, sessionID string, t task.Task) error {
	encoded, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE sessions SET tasks = tasks || $1::jsonb, last_activity_at = $2
		WHERE session_id = $3
	`, encoded, time.Now().UTC(), sessionID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", session.ErrNotFound, sessionID)
	}
	return nil
}

func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var s session.Session
	var tasks json.RawMessage
	if err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.LastActivityAt, &tasks); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.Tasks = []task.Task{}
	if len(tasks) > 0 {
		if err := json.Unmarshal(tasks, &s.Tasks); err != nil {
			return nil, fmt.Errorf("failed to decode session tasks: %w", err)
		}
	}
	return &s, nil
}
