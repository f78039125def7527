package memory

import (
	"context"
	"sync"

	"github.com/agentflow/agentflow/internal/domain/decision"
)

// HistoryRepository keeps decision precedent in process memory. Entries are
// keyed by description; re-recording a description replaces its entry but
// keeps its original position.
type HistoryRepository struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]decision.HistoryEntry
}

// NewHistoryRepository creates an empty in-memory history store.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{entries: make(map[string]decision.HistoryEntry)}
}

func (r *HistoryRepository) Record(ctx context.Context, entry decision.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.Description]; !ok {
		r.order = append(r.order, entry.Description)
	}
	r.entries[entry.Description] = cloneEntry(entry)
	return nil
}

func (r *HistoryRepository) Entries(ctx context.Context) ([]decision.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]decision.HistoryEntry, 0, len(r.order))
	for _, desc := range r.order {
		out = append(out, cloneEntry(r.entries[desc]))
	}
	return out, nil
}

func (r *HistoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.entries = make(map[string]decision.HistoryEntry)
	return nil
}

func cloneEntry(e decision.HistoryEntry) decision.HistoryEntry {
	e.Decisions = append([]decision.Decision(nil), e.Decisions...)
	return e
}
