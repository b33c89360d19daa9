package service

import (
	"context"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/session"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	EndSession(ctx context.Context, sessionID string) (*EndResult, error)

	// Roster
	Join(ctx context.Context, sessionID string, playerID int64, name string) (*JoinResult, error)
	Leave(ctx context.Context, sessionID string, playerID int64) (*LeaveResult, error)

	// Game Operations
	Begin(ctx context.Context, sessionID string) (*BeginResult, error)
	Roll(ctx context.Context, sessionID string, playerID int64, dice int) (*RollResult, error)
	Board(ctx context.Context, sessionID string) (*BoardView, error)

	// Rules returns the board rules every session plays by
	Rules() engine.Rules
}

// SessionManager defines session registry operations
type SessionManager interface {
	Create(ctx context.Context, id string) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []session.Snapshot
	End(ctx context.Context, id string) (bool, error)
	Rules() engine.Rules
}

// DiceRoller produces dice values for rolls that arrive without one
type DiceRoller interface {
	Roll() (int, error)
}
