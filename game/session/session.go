package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/ludo-engine/game/engine"
)

// Session is one forming or running game. All field mutation happens while
// holding mu. A session that has been removed from its Manager is closed and
// rejects every operation with ErrNotFound.
//
// Lock order: Session.mu, then Manager.flushMu, then Manager.mu.
type Session struct {
	id      string
	manager *Manager

	mu        sync.Mutex
	state     engine.State
	createdAt time.Time
	updatedAt time.Time
	closed    bool

	// published is replaced after every committed mutation so the registry
	// can collect snapshots for a flush without taking session locks.
	published atomic.Pointer[Snapshot]
}

// LeaveResult reports the roster after a player left.
type LeaveResult struct {
	Remaining int  `json:"remaining"`
	Ended     bool `json:"ended"`
}

// RollResult is the resolved roll plus the session state after it.
type RollResult struct {
	Outcome  engine.Outcome `json:"outcome"`
	Snapshot Snapshot       `json:"snapshot"`
	Ended    bool           `json:"ended"`
}

func newSession(m *Manager, id string, state engine.State, createdAt, updatedAt time.Time) *Session {
	s := &Session{
		id:        id,
		manager:   m,
		state:     state,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
	s.publish()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Join appends a player to the roster with its token off the board.
// It returns the roster size.
func (s *Session) Join(ctx context.Context, player engine.Player) (int, error) {
	if player.ID == 0 {
		return 0, ErrInvalidPlayerID
	}
	player.Name = strings.TrimSpace(player.Name)
	if player.Name == "" {
		player.Name = fmt.Sprintf("player %d", player.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrNotFound
	}
	if s.state.IndexOf(player.ID) >= 0 {
		return 0, ErrAlreadyJoined
	}
	if s.state.Started {
		return 0, ErrAlreadyStarted
	}

	next := s.state.Clone()
	next.Players = append(next.Players, player)
	next.Positions[player.ID] = engine.NotEntered
	if err := s.commit(next); err != nil {
		return 0, err
	}

	return len(s.state.Players), s.manager.flush(ctx)
}

// Leave removes a player. When the removed player sat before the turn
// pointer, the pointer moves back one so it keeps naming the same player.
// When the current player leaves, it moves back to the previous player,
// except at index 0 where the new first player takes the turn.
// The session is removed from the registry when its roster empties.
func (s *Session) Leave(ctx context.Context, playerID int64) (LeaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return LeaveResult{}, ErrNotFound
	}
	idx := s.state.IndexOf(playerID)
	if idx < 0 {
		return LeaveResult{}, ErrNotInGame
	}

	next := s.state.Clone()
	next.Players = append(next.Players[:idx], next.Players[idx+1:]...)
	delete(next.Positions, playerID)
	if idx <= next.TurnIndex && next.TurnIndex > 0 {
		next.TurnIndex--
	}
	if err := s.commit(next); err != nil {
		return LeaveResult{}, err
	}

	result := LeaveResult{Remaining: len(s.state.Players)}
	if result.Remaining == 0 {
		s.closeLocked()
		result.Ended = true
	}

	return result, s.manager.flush(ctx)
}

// Begin starts the game with the first player in join order.
func (s *Session) Begin(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Snapshot{}, ErrNotFound
	}
	if s.state.Started {
		return Snapshot{}, ErrAlreadyStarted
	}
	if len(s.state.Players) < MinPlayers {
		return Snapshot{}, ErrNotEnoughPlayers
	}

	next := s.state.Clone()
	next.Started = true
	next.TurnIndex = 0
	if err := s.commit(next); err != nil {
		return Snapshot{}, err
	}

	return s.snapshotLocked(), s.manager.flush(ctx)
}

// Roll resolves the current player's dice value. A winning roll ends the
// session and removes it from the registry.
func (s *Session) Roll(ctx context.Context, playerID int64, dice int) (RollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return RollResult{}, ErrNotFound
	}
	if !s.state.Started {
		return RollResult{}, ErrNotStarted
	}
	current, ok := s.state.Current()
	if !ok {
		return RollResult{}, fmt.Errorf("%w: turn index %d outside roster", engine.ErrInvalidState, s.state.TurnIndex)
	}
	if current.ID != playerID {
		return RollResult{}, fmt.Errorf("%w: current player is %s", ErrNotYourTurn, current.Name)
	}

	out, err := engine.Resolve(s.manager.rules, engine.Turn{
		Players:   s.state.Players,
		Positions: s.state.Positions,
		TurnIndex: s.state.TurnIndex,
		Dice:      dice,
	})
	if err != nil {
		return RollResult{}, err
	}

	next := s.state.Clone()
	next.Apply(out)
	if err := s.commit(next); err != nil {
		return RollResult{}, err
	}

	result := RollResult{Outcome: out, Snapshot: s.snapshotLocked()}
	if out.Winner != nil {
		s.closeLocked()
		result.Ended = true
	}

	return result, s.manager.flush(ctx)
}

// Snapshot returns a consistent copy of the session.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Snapshot{}, ErrNotFound
	}
	return s.snapshotLocked(), nil
}

// commit validates next and installs it. The current state is kept when
// validation fails.
func (s *Session) commit(next engine.State) error {
	if err := next.Validate(s.manager.rules); err != nil {
		return fmt.Errorf("session %s: %w", s.id, err)
	}
	s.state = next
	s.updatedAt = s.manager.now()
	s.publish()
	return nil
}

func (s *Session) publish() {
	snap := s.snapshotLocked()
	s.published.Store(&snap)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        s.id,
		State:     s.state.Clone(),
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// closeLocked marks the session closed and drops it from the registry.
// Callers hold s.mu; the registry lock is taken second.
func (s *Session) closeLocked() {
	s.closed = true
	s.manager.detach(s)
}
