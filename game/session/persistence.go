package session

import (
	"context"
	"time"

	"github.com/wricardo/ludo-engine/game/engine"
)

// Store defines the interface for persisting the session table
type Store interface {
	// SaveAll replaces the stored table with the given snapshots
	SaveAll(ctx context.Context, snapshots map[string]Snapshot) error

	// LoadAll returns every stored snapshot keyed by session ID
	LoadAll(ctx context.Context) (map[string]Snapshot, error)

	// Close releases the underlying resources
	Close() error
}

// Snapshot is a read-only copy of one session. It is also the persisted
// record: engine.State is inlined so the layout matches
// {players, positions, turn_index, started}.
type Snapshot struct {
	ID string `json:"id"`
	engine.State
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.State = s.State.Clone()
	return s
}
