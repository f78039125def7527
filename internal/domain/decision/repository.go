package decision

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . HistoryRepository

import (
	"context"
)

// HistoryRepository persists decision precedent, keyed by description.
// Recording the same description again replaces its entry; the set grows
// monotonically otherwise, until a caller clears it.
type HistoryRepository interface {
	Record(ctx context.Context, entry HistoryEntry) error
	Entries(ctx context.Context) ([]HistoryEntry, error)
	Clear(ctx context.Context) error
}
