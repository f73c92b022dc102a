package memory

import (
	"context"
	"time"
)

// Snapshot is the single logical record persisted by the ledger: the ordered
// raw trade log plus a last-updated timestamp. Aggregates are never
// persisted; they are rebuilt from the log on load.
type Snapshot struct {
	Records   []TradeRecord `json:"records"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store persists the ledger's snapshot under a fixed storage key.
// Implementations live in internal/storage.
type Store interface {
	// Load returns the persisted snapshot, or nil when none exists.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the persisted snapshot.
	Save(ctx context.Context, snap *Snapshot) error
	// Delete removes the persisted snapshot.
	Delete(ctx context.Context) error
}
