package session

import "errors"

// Domain errors returned by the registry and the session state machine.
// All of them are recoverable, user-facing conditions.
var (
	ErrNotFound         = errors.New("no active game for this session")
	ErrAlreadyActive    = errors.New("a game is already running in this session")
	ErrAlreadyStarted   = errors.New("game already started")
	ErrAlreadyJoined    = errors.New("player already in the game")
	ErrNotInGame        = errors.New("player is not in the game")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrNotStarted       = errors.New("game has not started yet")
	ErrNotYourTurn      = errors.New("not this player's turn")
	ErrInvalidSessionID = errors.New("invalid session ID")
	ErrInvalidPlayerID  = errors.New("invalid player ID")

	// ErrPersistence wraps flush failures. The in-memory mutation that
	// triggered the flush has been applied and stays authoritative.
	ErrPersistence = errors.New("failed to persist sessions")
)

// MinPlayers is the smallest roster that can begin a game.
const MinPlayers = 2
