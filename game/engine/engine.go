package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDice  = errors.New("dice value must be between 1 and 6")
	ErrInvalidState = errors.New("invalid game state")
)

// NewState returns an empty, not yet started state.
func NewState() State {
	return State{
		Players:   []Player{},
		Positions: make(map[int64]int),
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Players:   make([]Player, len(s.Players)),
		Positions: make(map[int64]int, len(s.Positions)),
		TurnIndex: s.TurnIndex,
		Started:   s.Started,
	}
	copy(out.Players, s.Players)
	for id, pos := range s.Positions {
		out.Positions[id] = pos
	}
	return out
}

// IndexOf returns the roster index of the player, or -1.
func (s State) IndexOf(playerID int64) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// Current returns the player whose turn it is.
func (s State) Current() (Player, bool) {
	if len(s.Players) == 0 || s.TurnIndex < 0 || s.TurnIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.TurnIndex], true
}

// Position returns the player's position, NotEntered when unknown.
func (s State) Position(playerID int64) int {
	if pos, ok := s.Positions[playerID]; ok {
		return pos
	}
	return NotEntered
}

// Normalize fills in missing positions and drops orphan ones. It is used
// when restoring snapshots written by older or foreign writers.
func (s *State) Normalize() {
	if s.Players == nil {
		s.Players = []Player{}
	}
	if s.Positions == nil {
		s.Positions = make(map[int64]int)
	}
	known := make(map[int64]bool, len(s.Players))
	for _, p := range s.Players {
		known[p.ID] = true
		if _, ok := s.Positions[p.ID]; !ok {
			s.Positions[p.ID] = NotEntered
		}
	}
	for id := range s.Positions {
		if !known[id] {
			delete(s.Positions, id)
		}
	}
}

// Validate enforces the state invariants: unique player ids, exactly one
// position per player, positions within the board and a turn pointer
// inside the roster.
func (s State) Validate(rules Rules) error {
	seen := make(map[int64]bool, len(s.Players))
	for _, p := range s.Players {
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate player id %d", ErrInvalidState, p.ID)
		}
		seen[p.ID] = true

		pos, ok := s.Positions[p.ID]
		if !ok {
			return fmt.Errorf("%w: player %d has no position", ErrInvalidState, p.ID)
		}
		if pos < NotEntered || pos > rules.BoardSize {
			return fmt.Errorf("%w: player %d position %d outside -1..%d", ErrInvalidState, p.ID, pos, rules.BoardSize)
		}
	}
	if len(s.Positions) != len(s.Players) {
		return fmt.Errorf("%w: %d positions for %d players", ErrInvalidState, len(s.Positions), len(s.Players))
	}
	if len(s.Players) > 0 && (s.TurnIndex < 0 || s.TurnIndex >= len(s.Players)) {
		return fmt.Errorf("%w: turn index %d outside roster of %d", ErrInvalidState, s.TurnIndex, len(s.Players))
	}
	if len(s.Players) == 0 && s.TurnIndex != 0 {
		return fmt.Errorf("%w: turn index %d on empty roster", ErrInvalidState, s.TurnIndex)
	}
	return nil
}
