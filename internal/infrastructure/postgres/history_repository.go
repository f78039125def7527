package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentflow/agentflow/internal/domain/decision"
)

// HistoryRepository implements decision.HistoryRepository.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Record upserts by description. The seq column is assigned on first insert
// and left untouched on conflict, so Entries keeps first-recorded order.
func (r *HistoryRepository) Record(ctx context.Context, entry decision.HistoryEntry) error {
	decisions, err := json.Marshal(entry.Decisions)
	if err != nil {
		return fmt.Errorf("failed to encode decisions: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO decision_history (description, decisions, recorded_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (description) DO UPDATE
		SET decisions=EXCLUDED.decisions, recorded_at=EXCLUDED.recorded_at
	`, entry.Description, decisions, entry.RecordedAt)
	return err
}

func (r *HistoryRepository) Entries(ctx context.Context) ([]decision.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT description, decisions, recorded_at
		FROM decision_history ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []decision.HistoryEntry
	for rows.Next() {
		var e decision.HistoryEntry
		var decisions json.RawMessage
		if err := rows.Scan(&e.Description, &decisions, &e.RecordedAt); err != nil {
			return nil, err
		}
		if len(decisions) > 0 {
			if err := json.Unmarshal(decisions, &e.Decisions); err != nil {
				return nil, fmt.Errorf("failed to decode decisions: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *HistoryRepository) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM decision_history`)
	return err
}
