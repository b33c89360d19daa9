// Package engine provides the core game rules for the Ludo session engine.
//
// The engine package implements:
//   - The simplified single-token board (entering, moving, overshoot, home)
//   - Dice resolution with extra turns and captures
//   - Turn advancement and win detection
//   - State invariant checks used by persistence and the session layer
//   - A plain-text board formatter
//
// Core Types:
//
// State is the roster, positions, turn pointer and started flag of one game.
// Turn is the input of a single roll and Outcome is what Resolve computes
// from it; State.Apply commits an Outcome. Rules carries the board size.
//
// Usage:
//
//	rules := engine.DefaultRules()
//	state := engine.NewState()
//
//	out, err := engine.Resolve(rules, engine.Turn{
//		Players:   state.Players,
//		Positions: state.Positions,
//		TurnIndex: state.TurnIndex,
//		Dice:      6,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	state.Apply(out)
//	fmt.Println(engine.FormatBoard(rules, state))
//
// Game Rules:
//
// Every player has one token that starts off the board. A 6 enters it on
// square 0 and grants another roll. Entered tokens advance by the dice
// value; rolls that would pass the home square are forfeited, and landing
// on it exactly wins the game. Landing on an opponent sends it back off the
// board. A 6 on the board grants another roll; otherwise the turn passes to
// the next player in join order.
package engine
