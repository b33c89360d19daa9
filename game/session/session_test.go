package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wricardo/ludo-engine/game/engine"
)

func TestSession_Join(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	sess, _ := manager.Create(ctx, "join")

	count, err := sess.Join(ctx, alice)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 player, got %d", count)
	}

	t.Run("duplicate player", func(t *testing.T) {
		if _, err := sess.Join(ctx, alice); !errors.Is(err, ErrAlreadyJoined) {
			t.Errorf("Expected ErrAlreadyJoined, got %v", err)
		}
	})

	t.Run("zero player ID", func(t *testing.T) {
		if _, err := sess.Join(ctx, engine.Player{Name: "nobody"}); !errors.Is(err, ErrInvalidPlayerID) {
			t.Errorf("Expected ErrInvalidPlayerID, got %v", err)
		}
	})

	t.Run("blank name gets a default", func(t *testing.T) {
		if _, err := sess.Join(ctx, engine.Player{ID: 42, Name: "  "}); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
		snap, _ := sess.Snapshot()
		last := snap.Players[len(snap.Players)-1]
		if last.Name != "player 42" {
			t.Errorf("Expected default name 'player 42', got %q", last.Name)
		}
		if snap.Positions[42] != engine.NotEntered {
			t.Errorf("Expected new player off the board, got %d", snap.Positions[42])
		}
	})

	t.Run("join after start", func(t *testing.T) {
		if _, err := sess.Begin(ctx); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if _, err := sess.Join(ctx, carol); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("Expected ErrAlreadyStarted, got %v", err)
		}
	})
}

func TestSession_Begin(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	sess, _ := manager.Create(ctx, "begin")

	if _, err := sess.Begin(ctx); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("Expected ErrNotEnoughPlayers with no players, got %v", err)
	}
	sess.Join(ctx, alice)
	if _, err := sess.Begin(ctx); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("Expected ErrNotEnoughPlayers with one player, got %v", err)
	}
	sess.Join(ctx, bob)

	snap, err := sess.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !snap.Started || snap.TurnIndex != 0 {
		t.Errorf("Expected started game on turn 0, got started=%v turn=%d", snap.Started, snap.TurnIndex)
	}
	if current, _ := snap.Current(); current.ID != alice.ID {
		t.Errorf("Expected Alice to open, got %s", current.Name)
	}

	if _, err := sess.Begin(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSession_Roll(t *testing.T) {
	ctx := context.Background()

	t.Run("before start", func(t *testing.T) {
		manager := newTestManager(t)
		sess, _ := manager.Create(ctx, "roll")
		sess.Join(ctx, alice)
		if _, err := sess.Roll(ctx, alice.ID, 6); !errors.Is(err, ErrNotStarted) {
			t.Errorf("Expected ErrNotStarted, got %v", err)
		}
	})

	t.Run("out of turn names the current player", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "roll", alice, bob)
		_, err := sess.Roll(ctx, bob.ID, 6)
		if !errors.Is(err, ErrNotYourTurn) {
			t.Fatalf("Expected ErrNotYourTurn, got %v", err)
		}
		if !strings.Contains(err.Error(), "Alice") {
			t.Errorf("Expected error to name Alice, got %q", err.Error())
		}
	})

	t.Run("invalid dice leaves state unchanged", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "roll", alice, bob)
		before, _ := sess.Snapshot()
		if _, err := sess.Roll(ctx, alice.ID, 7); !errors.Is(err, engine.ErrInvalidDice) {
			t.Errorf("Expected ErrInvalidDice, got %v", err)
		}
		after, _ := sess.Snapshot()
		if after.TurnIndex != before.TurnIndex || after.Positions[alice.ID] != before.Positions[alice.ID] {
			t.Error("Invalid roll should not change the state")
		}
	})

	t.Run("six enters and keeps the turn", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "roll", alice, bob)
		result, err := sess.Roll(ctx, alice.ID, 6)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if result.Snapshot.Positions[alice.ID] != 0 {
			t.Errorf("Expected Alice on square 0, got %d", result.Snapshot.Positions[alice.ID])
		}
		if result.Snapshot.TurnIndex != 0 || !result.Outcome.ExtraTurn {
			t.Errorf("Expected extra turn, got turn index %d", result.Snapshot.TurnIndex)
		}
	})

	t.Run("capture sends opponent back", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "roll", alice, bob)
		sess.Roll(ctx, alice.ID, 6) // Alice enters at 0
		sess.Roll(ctx, alice.ID, 3) // Alice to 3, turn passes
		sess.Roll(ctx, bob.ID, 6)   // Bob enters at 0

		result, err := sess.Roll(ctx, bob.ID, 3)
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		captured, ok := result.Outcome.Captured()
		if !ok || captured.ID != alice.ID {
			t.Fatalf("Expected Alice captured, got %+v", result.Outcome.Captures)
		}
		if result.Snapshot.Positions[alice.ID] != engine.NotEntered {
			t.Errorf("Expected Alice back at start, got %d", result.Snapshot.Positions[alice.ID])
		}
		if result.Snapshot.Positions[bob.ID] != 3 {
			t.Errorf("Expected Bob on 3, got %d", result.Snapshot.Positions[bob.ID])
		}
	})

	t.Run("exact home wins and removes the session", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "roll", alice, bob)
		sess.state.Positions[alice.ID] = 27
		sess.publish()

		if _, err := sess.Roll(ctx, alice.ID, 5); err != nil {
			t.Fatalf("Overshoot roll failed: %v", err)
		}
		snap, _ := sess.Snapshot()
		if snap.Positions[alice.ID] != 27 {
			t.Errorf("Overshoot must not move, got %d", snap.Positions[alice.ID])
		}
		sess.Roll(ctx, bob.ID, 1)

		result, err := sess.Roll(ctx, alice.ID, 3)
		if err != nil {
			t.Fatalf("Winning roll failed: %v", err)
		}
		if result.Outcome.Winner == nil || result.Outcome.Winner.ID != alice.ID {
			t.Fatalf("Expected Alice to win, got %+v", result.Outcome.Winner)
		}
		if !result.Ended {
			t.Error("Expected session to end")
		}
		if _, err := manager.Get("roll"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected session removed after win, got %v", err)
		}
		if _, err := sess.Roll(ctx, bob.ID, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after win, got %v", err)
		}
	})
}

func TestSession_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("player before current shifts turn back", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "leave", alice, bob, carol)
		sess.Roll(ctx, alice.ID, 1)
		sess.Roll(ctx, bob.ID, 1) // Carol's turn, index 2

		result, err := sess.Leave(ctx, bob.ID)
		if err != nil {
			t.Fatalf("Leave failed: %v", err)
		}
		if result.Remaining != 2 || result.Ended {
			t.Errorf("Expected 2 remaining, got %+v", result)
		}
		snap, _ := sess.Snapshot()
		if snap.TurnIndex != 1 {
			t.Errorf("Expected turn index 1, got %d", snap.TurnIndex)
		}
		if current, _ := snap.Current(); current.ID != carol.ID {
			t.Errorf("Expected Carol to keep the turn, got %s", current.Name)
		}
		if _, ok := snap.Positions[bob.ID]; ok {
			t.Error("Expected Bob's position to be dropped")
		}
	})

	t.Run("player after current keeps turn", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "leave", alice, bob, carol)
		if _, err := sess.Leave(ctx, carol.ID); err != nil {
			t.Fatalf("Leave failed: %v", err)
		}
		snap, _ := sess.Snapshot()
		if snap.TurnIndex != 0 {
			t.Errorf("Expected turn index 0, got %d", snap.TurnIndex)
		}
	})

	t.Run("current player hands turn to previous player", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "leave", alice, bob, carol)
		sess.Roll(ctx, alice.ID, 1) // Bob's turn, index 1

		if _, err := sess.Leave(ctx, bob.ID); err != nil {
			t.Fatalf("Leave failed: %v", err)
		}
		snap, _ := sess.Snapshot()
		if current, _ := snap.Current(); current.ID != alice.ID {
			t.Errorf("Expected Alice to take the turn, got %s", current.Name)
		}
	})

	t.Run("first player on turn leaves", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "leave", alice, bob, carol)

		if _, err := sess.Leave(ctx, alice.ID); err != nil {
			t.Fatalf("Leave failed: %v", err)
		}
		snap, _ := sess.Snapshot()
		if current, _ := snap.Current(); current.ID != bob.ID {
			t.Errorf("Expected Bob to take the turn, got %s", current.Name)
		}
	})

	t.Run("last player of roster on turn wraps", func(t *testing.T) {
		manager := newTestManager(t)
		sess := startedSession(t, manager, "leave", alice, bob)
		sess.Roll(ctx, alice.ID, 1) // Bob's turn, index 1

		if _, err := sess.Leave(ctx, bob.ID); err != nil {
			t.Fatalf("Leave failed: %v", err)
		}
		snap, _ := sess.Snapshot()
		if snap.TurnIndex != 0 {
			t.Errorf("Expected turn index 0, got %d", snap.TurnIndex)
		}
	})

	t.Run("unknown player", func(t *testing.T) {
		manager := newTestManager(t)
		sess, _ := manager.Create(ctx, "leave")
		if _, err := sess.Leave(ctx, 99); !errors.Is(err, ErrNotInGame) {
			t.Errorf("Expected ErrNotInGame, got %v", err)
		}
	})

	t.Run("empty roster removes session", func(t *testing.T) {
		manager := newTestManager(t)
		sess, _ := manager.Create(ctx, "leave")
		sess.Join(ctx, alice)

		result, err := sess.Leave(ctx, alice.ID)
		if err != nil {
			t.Fatalf("Leave failed: %v", err)
		}
		if !result.Ended || result.Remaining != 0 {
			t.Errorf("Expected ended session, got %+v", result)
		}
		if _, err := manager.Get("leave"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected session removed, got %v", err)
		}
	})
}

func TestSession_TurnIndexStaysInRoster(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	sess := startedSession(t, manager, "invariant", alice, bob, carol)

	dice := []int{6, 2, 1, 6, 6, 4, 3, 5, 6, 1, 2, 6, 3}
	for i, d := range dice {
		snap, err := sess.Snapshot()
		if err != nil {
			t.Fatalf("Step %d: snapshot failed: %v", i, err)
		}
		current, _ := snap.Current()
		if _, err := sess.Roll(ctx, current.ID, d); err != nil {
			t.Fatalf("Step %d: roll failed: %v", i, err)
		}

		snap, _ = sess.Snapshot()
		if snap.TurnIndex < 0 || snap.TurnIndex >= len(snap.Players) {
			t.Fatalf("Step %d: turn index %d outside roster of %d", i, snap.TurnIndex, len(snap.Players))
		}
	}
}
