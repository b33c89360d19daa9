package service

import (
	"time"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/session"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID            string          `json:"id"`
	Players       []engine.Player `json:"players"`
	Positions     map[int64]int   `json:"positions"`
	TurnIndex     int             `json:"turn_index"`
	Started       bool            `json:"started"`
	CurrentPlayer *engine.Player  `json:"current_player,omitempty"`
	BoardSize     int             `json:"board_size"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// JoinResult contains the roster after a join
type JoinResult struct {
	SessionID   string        `json:"session_id"`
	Player      engine.Player `json:"player"`
	PlayerCount int           `json:"player_count"`
	Message     string        `json:"message"`
}

// LeaveResult contains the roster after a leave
type LeaveResult struct {
	SessionID string `json:"session_id"`
	PlayerID  int64  `json:"player_id"`
	Remaining int    `json:"remaining"`
	Ended     bool   `json:"ended"`
	Message   string `json:"message"`
}

// BeginResult contains the opening player and the starting board
type BeginResult struct {
	SessionID   string        `json:"session_id"`
	FirstPlayer engine.Player `json:"first_player"`
	Board       string        `json:"board"`
	Session     *SessionInfo  `json:"session"`
	Message     string        `json:"message"`
}

// RollResult contains the resolution of a single roll
type RollResult struct {
	SessionID  string         `json:"session_id"`
	Outcome    engine.Outcome `json:"outcome"`
	Captured   *engine.Player `json:"captured,omitempty"`
	NextPlayer *engine.Player `json:"next_player,omitempty"`
	Ended      bool           `json:"ended"`
	Session    *SessionInfo   `json:"session"`
	Board      string         `json:"board"`
	Summary    string         `json:"summary"`
}

// BoardView is the formatted board of a session
type BoardView struct {
	SessionID string       `json:"session_id"`
	Board     string       `json:"board"`
	Session   *SessionInfo `json:"session"`
}

// EndResult reports whether an end request removed a game
type EndResult struct {
	SessionID string `json:"session_id"`
	Ended     bool   `json:"ended"`
	Message   string `json:"message"`
}

func newSessionInfo(snap session.Snapshot, rules engine.Rules) *SessionInfo {
	info := &SessionInfo{
		ID:        snap.ID,
		Players:   snap.Players,
		Positions: snap.Positions,
		TurnIndex: snap.TurnIndex,
		Started:   snap.Started,
		BoardSize: rules.BoardSize,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
	if current, ok := snap.Current(); ok && snap.Started {
		info.CurrentPlayer = &current
	}
	return info
}
