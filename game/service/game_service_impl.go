package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/session"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	dice     DiceRoller
	logger   *zap.Logger
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithDiceRoller replaces the random dice used when a roll carries no value
func WithDiceRoller(d DiceRoller) Option {
	return func(s *gameServiceImpl) {
		s.dice = d
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, logger *zap.Logger, opts ...Option) GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &gameServiceImpl{
		sessions: sessions,
		dice:     NewDiceRoller(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gameServiceImpl) Rules() engine.Rules {
	return s.sessions.Rules()
}

// CreateSession creates a new forming session
func (s *gameServiceImpl) CreateSession(ctx context.Context, sessionID string) (info *SessionInfo, err error) {
	defer s.recoverPanic("create_session", &err)

	sess, err := s.sessions.Create(ctx, sessionID)
	if err != nil {
		return nil, s.fail("create_session", sessionID, err)
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return nil, s.fail("create_session", sessionID, err)
	}

	s.logger.Info("session created", zap.String("session_id", snap.ID))
	return newSessionInfo(snap, s.Rules()), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (info *SessionInfo, err error) {
	defer s.recoverPanic("get_session", &err)

	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, s.fail("get_session", sessionID, err)
	}
	return newSessionInfo(snap, s.Rules()), nil
}

// ListSessions returns all live sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) (infos []*SessionInfo, err error) {
	defer s.recoverPanic("list_sessions", &err)

	snapshots := s.sessions.List()
	result := make([]*SessionInfo, 0, len(snapshots))
	for _, snap := range snapshots {
		result = append(result, newSessionInfo(snap, s.Rules()))
	}
	return result, nil
}

// EndSession removes a game. Ending a missing game is not an error.
func (s *gameServiceImpl) EndSession(ctx context.Context, sessionID string) (res *EndResult, err error) {
	defer s.recoverPanic("end", &err)

	ended, err := s.sessions.End(ctx, sessionID)
	if err != nil {
		return nil, s.fail("end", sessionID, err)
	}

	result := &EndResult{SessionID: sessionID, Ended: ended}
	if ended {
		result.Message = "🛑 Ludo game ended and removed."
	} else {
		result.Message = "No active Ludo game to end."
	}
	return result, nil
}

// Join adds a player to a forming session
func (s *gameServiceImpl) Join(ctx context.Context, sessionID string, playerID int64, name string) (res *JoinResult, err error) {
	defer s.recoverPanic("join", &err)

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, s.fail("join", sessionID, err)
	}

	count, err := sess.Join(ctx, engine.Player{ID: playerID, Name: name})
	if err != nil {
		return nil, s.fail("join", sessionID, err)
	}

	player := engine.Player{ID: playerID, Name: name}
	if snap, snapErr := sess.Snapshot(); snapErr == nil {
		if idx := snap.IndexOf(playerID); idx >= 0 {
			player = snap.Players[idx]
		}
	}

	s.logger.Debug("player joined",
		zap.String("session_id", sessionID),
		zap.Int64("player_id", playerID),
		zap.Int("players", count))

	return &JoinResult{
		SessionID:   sessionID,
		Player:      player,
		PlayerCount: count,
		Message:     fmt.Sprintf("✅ %s joined the Ludo game! Total players: %d", player.Name, count),
	}, nil
}

// Leave removes a player. The game ends when nobody is left.
func (s *gameServiceImpl) Leave(ctx context.Context, sessionID string, playerID int64) (res *LeaveResult, err error) {
	defer s.recoverPanic("leave", &err)

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, s.fail("leave", sessionID, err)
	}

	var name string
	if snap, snapErr := sess.Snapshot(); snapErr == nil {
		if idx := snap.IndexOf(playerID); idx >= 0 {
			name = snap.Players[idx].Name
		}
	}

	left, err := sess.Leave(ctx, playerID)
	if err != nil {
		return nil, s.fail("leave", sessionID, err)
	}

	result := &LeaveResult{
		SessionID: sessionID,
		PlayerID:  playerID,
		Remaining: left.Remaining,
		Ended:     left.Ended,
	}
	if left.Ended {
		result.Message = fmt.Sprintf("%s left. No players remain, game ended.", name)
	} else {
		result.Message = fmt.Sprintf("%s left the game. Players remaining: %d", name, left.Remaining)
	}
	return result, nil
}

// Begin starts a forming session
func (s *gameServiceImpl) Begin(ctx context.Context, sessionID string) (res *BeginResult, err error) {
	defer s.recoverPanic("begin", &err)

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, s.fail("begin", sessionID, err)
	}

	snap, err := sess.Begin(ctx)
	if err != nil {
		return nil, s.fail("begin", sessionID, err)
	}

	first, _ := snap.Current()
	board := engine.FormatBoard(s.Rules(), snap.State)

	s.logger.Info("game started",
		zap.String("session_id", sessionID),
		zap.Int("players", len(snap.Players)))

	return &BeginResult{
		SessionID:   sessionID,
		FirstPlayer: first,
		Board:       board,
		Session:     newSessionInfo(snap, s.Rules()),
		Message:     fmt.Sprintf("🏁 Game started! %s goes first.", first.Name),
	}, nil
}

// Roll resolves a turn. A dice value of zero rolls the die.
func (s *gameServiceImpl) Roll(ctx context.Context, sessionID string, playerID int64, dice int) (res *RollResult, err error) {
	defer s.recoverPanic("roll", &err)

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, s.fail("roll", sessionID, err)
	}

	if dice == 0 {
		dice, err = s.dice.Roll()
		if err != nil {
			return nil, s.fail("roll", sessionID, err)
		}
	}

	rolled, err := sess.Roll(ctx, playerID, dice)
	if err != nil {
		return nil, s.fail("roll", sessionID, err)
	}

	out := rolled.Outcome
	result := &RollResult{
		SessionID: sessionID,
		Outcome:   out,
		Ended:     rolled.Ended,
		Session:   newSessionInfo(rolled.Snapshot, s.Rules()),
		Board:     engine.FormatBoard(s.Rules(), rolled.Snapshot.State),
	}
	if captured, ok := out.Captured(); ok {
		result.Captured = &captured
	}
	if !rolled.Ended {
		if next, ok := rolled.Snapshot.Current(); ok {
			result.NextPlayer = &next
		}
	}
	result.Summary = rollSummary(result)

	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.Int64("player_id", playerID),
		zap.Int("dice", out.Dice),
		zap.Int("from", out.From),
		zap.Int("to", out.To),
	}
	if out.Winner != nil {
		s.logger.Info("game won", fields...)
	} else {
		s.logger.Debug("dice rolled", fields...)
	}
	return result, nil
}

// Board renders the board of a session
func (s *gameServiceImpl) Board(ctx context.Context, sessionID string) (view *BoardView, err error) {
	defer s.recoverPanic("board", &err)

	snap, err := s.snapshot(sessionID)
	if err != nil {
		return nil, s.fail("board", sessionID, err)
	}
	return &BoardView{
		SessionID: sessionID,
		Board:     engine.FormatBoard(s.Rules(), snap.State),
		Session:   newSessionInfo(snap, s.Rules()),
	}, nil
}

func (s *gameServiceImpl) snapshot(sessionID string) (session.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot()
}

// fail logs err at a level matching its code and returns it unchanged.
// Unknown errors are reported as ErrInternal.
func (s *gameServiceImpl) fail(op, sessionID string, err error) error {
	code := CodeOf(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("session_id", sessionID),
		zap.String("code", string(code)),
		zap.Error(err),
	}

	switch code {
	case CodeInternal:
		s.logger.Error("command failed", fields...)
		if errors.Is(err, ErrInternal) {
			return err
		}
		return fmt.Errorf("%w: %s", ErrInternal, op)
	case CodePersistence:
		s.logger.Error("command applied but not persisted", fields...)
	default:
		s.logger.Debug("command rejected", fields...)
	}
	return err
}

func (s *gameServiceImpl) recoverPanic(op string, err *error) {
	if r := recover(); r != nil {
		s.logger.Error("panic in command",
			zap.String("op", op),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()))
		*err = fmt.Errorf("%w: %s", ErrInternal, op)
	}
}

// rollSummary renders the human-readable reply for a roll
func rollSummary(r *RollResult) string {
	out := r.Outcome
	var b strings.Builder

	if out.Winner != nil {
		fmt.Fprintf(&b, "🎲 %s rolled %d.\n", out.Player.Name, out.Dice)
		fmt.Fprintf(&b, "🎉 %s has reached home and won the Ludo game! Congratulations!", out.Winner.Name)
		return b.String()
	}

	fmt.Fprintf(&b, "🎲 %s rolled %d.\n", out.Player.Name, out.Dice)
	if out.Moved {
		fmt.Fprintf(&b, "➡️ Moved to %d.\n", out.To)
	} else {
		b.WriteString("✋ Can't move this turn.\n")
	}
	if r.Captured != nil {
		fmt.Fprintf(&b, "💥 Captured %s! They return to start.\n", r.Captured.Name)
	}
	if out.ExtraTurn {
		b.WriteString("🔁 You rolled a 6, go again!\n")
	} else if r.NextPlayer != nil {
		fmt.Fprintf(&b, "⏭️ Next: %s\n", r.NextPlayer.Name)
	}
	b.WriteString("\n")
	b.WriteString(r.Board)
	return b.String()
}
