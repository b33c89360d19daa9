package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/service"
	"github.com/wricardo/ludo-engine/game/session"
)

// scriptedDice replays values in order
type scriptedDice struct {
	values []int
}

func (d *scriptedDice) Roll() (int, error) {
	if len(d.values) == 0 {
		return 0, errors.New("out of dice")
	}
	v := d.values[0]
	d.values = d.values[1:]
	return v, nil
}

// panickingManager implements service.SessionManager and panics on Get
type panickingManager struct {
	*session.Manager
}

func (p panickingManager) Get(id string) (*session.Session, error) {
	panic("registry corrupted")
}

func newTestService(t *testing.T, opts ...service.Option) (service.GameService, *session.Manager) {
	t.Helper()
	manager := session.NewManager(engine.DefaultRules(), zaptest.NewLogger(t))
	return service.NewGameService(manager, zaptest.NewLogger(t), opts...), manager
}

// startedGame creates a session with Alice and Bob and begins it.
func startedGame(t *testing.T, svc service.GameService, id string) {
	t.Helper()
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, id); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := svc.Join(ctx, id, 1, "Alice"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := svc.Join(ctx, id, 2, "Bob"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := svc.Begin(ctx, id); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
}

func TestGameService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	info, err := svc.CreateSession(ctx, "chat-1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ID != "chat-1" || info.Started || info.BoardSize != engine.DefaultBoardSize {
		t.Errorf("Unexpected session info %+v", info)
	}

	join, err := svc.Join(ctx, "chat-1", 1, "Alice")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if join.PlayerCount != 1 || !strings.Contains(join.Message, "Alice joined") {
		t.Errorf("Unexpected join result %+v", join)
	}
	svc.Join(ctx, "chat-1", 2, "Bob")

	begin, err := svc.Begin(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if begin.FirstPlayer.Name != "Alice" {
		t.Errorf("Expected Alice first, got %s", begin.FirstPlayer.Name)
	}
	if !strings.Contains(begin.Board, "Alice | 🏁 Not entered [----------] <- current") {
		t.Errorf("Unexpected board:\n%s", begin.Board)
	}

	list, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 1 || list[0].CurrentPlayer == nil || list[0].CurrentPlayer.ID != 1 {
		t.Errorf("Unexpected list %+v", list)
	}

	// Ending twice reports the same missing game both times.
	end, err := svc.EndSession(ctx, "chat-1")
	if err != nil || !end.Ended {
		t.Fatalf("Expected game ended, got %+v, %v", end, err)
	}
	for i := 0; i < 2; i++ {
		end, err = svc.EndSession(ctx, "chat-1")
		if err != nil {
			t.Fatalf("End on missing game failed: %v", err)
		}
		if end.Ended || end.Message != "No active Ludo game to end." {
			t.Errorf("Unexpected end result %+v", end)
		}
	}

	if _, err := svc.Board(ctx, "chat-1"); service.CodeOf(err) != service.CodeNotFound {
		t.Errorf("Expected not_found after end, got %v", err)
	}
}

func TestGameService_Roll(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit dice", func(t *testing.T) {
		svc, _ := newTestService(t)
		startedGame(t, svc, "roll")

		res, err := svc.Roll(ctx, "roll", 1, 6)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if !res.Outcome.Moved || !res.Outcome.ExtraTurn || res.Outcome.To != 0 {
			t.Errorf("Expected entry with extra turn, got %+v", res.Outcome)
		}
		for _, want := range []string{"🎲 Alice rolled 6.", "➡️ Moved to 0.", "🔁 You rolled a 6, go again!"} {
			if !strings.Contains(res.Summary, want) {
				t.Errorf("Expected %q in summary:\n%s", want, res.Summary)
			}
		}

		res, err = svc.Roll(ctx, "roll", 1, 2)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if res.NextPlayer == nil || res.NextPlayer.Name != "Bob" {
			t.Errorf("Expected Bob next, got %+v", res.NextPlayer)
		}
		if !strings.Contains(res.Summary, "⏭️ Next: Bob") {
			t.Errorf("Expected next line in summary:\n%s", res.Summary)
		}
	})

	t.Run("random dice when none given", func(t *testing.T) {
		svc, _ := newTestService(t, service.WithDiceRoller(&scriptedDice{values: []int{3}}))
		startedGame(t, svc, "roll")

		res, err := svc.Roll(ctx, "roll", 1, 0)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if res.Outcome.Dice != 3 || res.Outcome.Moved {
			t.Errorf("Expected scripted 3 with no move, got %+v", res.Outcome)
		}
		if !strings.Contains(res.Summary, "✋ Can't move this turn.") {
			t.Errorf("Expected can't move line:\n%s", res.Summary)
		}
	})

	t.Run("capture", func(t *testing.T) {
		svc, _ := newTestService(t)
		startedGame(t, svc, "roll")
		svc.Roll(ctx, "roll", 1, 6)
		svc.Roll(ctx, "roll", 1, 2)
		svc.Roll(ctx, "roll", 2, 6)

		res, err := svc.Roll(ctx, "roll", 2, 2)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if res.Captured == nil || res.Captured.Name != "Alice" {
			t.Fatalf("Expected Alice captured, got %+v", res.Captured)
		}
		if !strings.Contains(res.Summary, "💥 Captured Alice! They return to start.") {
			t.Errorf("Expected capture line:\n%s", res.Summary)
		}
	})

	t.Run("win ends the game", func(t *testing.T) {
		svc, manager := newTestService(t)
		startedGame(t, svc, "roll")

		// Walk Alice to 27 while Bob never enters.
		svc.Roll(ctx, "roll", 1, 6) // 0
		for _, d := range []int{6, 6, 6, 6} {
			if _, err := svc.Roll(ctx, "roll", 1, d); err != nil {
				t.Fatal(err)
			}
		}
		svc.Roll(ctx, "roll", 1, 3) // 27, turn passes
		svc.Roll(ctx, "roll", 2, 1)

		res, err := svc.Roll(ctx, "roll", 1, 3)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if !res.Ended || res.Outcome.Winner == nil {
			t.Fatalf("Expected win, got %+v", res)
		}
		if !strings.Contains(res.Summary, "🎉 Alice has reached home and won the Ludo game!") {
			t.Errorf("Expected win line:\n%s", res.Summary)
		}
		if manager.Count() != 0 {
			t.Errorf("Expected session removed, %d left", manager.Count())
		}
		if _, err := svc.Board(ctx, "roll"); service.CodeOf(err) != service.CodeNotFound {
			t.Errorf("Expected not_found after win, got %v", err)
		}
	})
}

func TestGameService_Leave(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	startedGame(t, svc, "leave")

	res, err := svc.Leave(ctx, "leave", 2)
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if res.Remaining != 1 || res.Ended || res.Message != "Bob left the game. Players remaining: 1" {
		t.Errorf("Unexpected leave result %+v", res)
	}

	res, err = svc.Leave(ctx, "leave", 1)
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if !res.Ended {
		t.Errorf("Expected game ended, got %+v", res)
	}
}

func TestGameService_ErrorCodes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	startedGame(t, svc, "codes")
	svc.CreateSession(ctx, "forming")

	tests := []struct {
		name string
		call func() error
		want service.Code
	}{
		{"missing session", func() error { _, err := svc.Join(ctx, "nope", 1, "A"); return err }, service.CodeNotFound},
		{"already active", func() error { _, err := svc.CreateSession(ctx, "codes"); return err }, service.CodeAlreadyActive},
		{"already started", func() error { _, err := svc.Begin(ctx, "codes"); return err }, service.CodeAlreadyStarted},
		{"already joined", func() error { _, err := svc.Join(ctx, "codes", 1, "Alice"); return err }, service.CodeAlreadyJoined},
		{"zero player id", func() error { _, err := svc.Join(ctx, "forming", 0, "A"); return err }, service.CodeInvalidInput},
		{"not in game", func() error { _, err := svc.Leave(ctx, "codes", 9); return err }, service.CodeNotInGame},
		{"not enough players", func() error { _, err := svc.Begin(ctx, "forming"); return err }, service.CodeNotEnoughPlayers},
		{"not started", func() error { _, err := svc.Roll(ctx, "forming", 1, 1); return err }, service.CodeNotStarted},
		{"not your turn", func() error { _, err := svc.Roll(ctx, "codes", 2, 1); return err }, service.CodeNotYourTurn},
		{"invalid dice", func() error { _, err := svc.Roll(ctx, "codes", 1, 9); return err }, service.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("Expected error")
			}
			if got := service.CodeOf(err); got != tt.want {
				t.Errorf("Expected code %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestGameService_RecoversPanics(t *testing.T) {
	manager := session.NewManager(engine.DefaultRules(), zaptest.NewLogger(t))
	svc := service.NewGameService(panickingManager{manager}, zaptest.NewLogger(t))

	_, err := svc.Roll(context.Background(), "any", 1, 1)
	if !errors.Is(err, service.ErrInternal) {
		t.Fatalf("Expected ErrInternal, got %v", err)
	}
	if service.CodeOf(err) != service.CodeInternal {
		t.Errorf("Expected internal code, got %s", service.CodeOf(err))
	}
}

func TestCodeOf(t *testing.T) {
	if service.CodeOf(nil) != "" {
		t.Error("Expected empty code for nil")
	}
	if service.CodeOf(errors.New("boom")) != service.CodeInternal {
		t.Error("Expected unknown errors to be internal")
	}
	if !service.Retryable(session.ErrPersistence) {
		t.Error("Expected persistence failures to be retryable")
	}
	if service.Retryable(session.ErrNotFound) {
		t.Error("Expected not_found to be final")
	}
}
