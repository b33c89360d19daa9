package engine

import "fmt"

// Resolve computes the effect of the acting player's roll. The acting
// player is Players[TurnIndex]. Resolve does not modify its input; use
// Apply to commit the outcome to a State.
func Resolve(rules Rules, turn Turn) (Outcome, error) {
	if turn.Dice < MinDice || turn.Dice > MaxDice {
		return Outcome{}, fmt.Errorf("%w: got %d", ErrInvalidDice, turn.Dice)
	}
	if turn.TurnIndex < 0 || turn.TurnIndex >= len(turn.Players) {
		return Outcome{}, fmt.Errorf("%w: turn index %d outside roster of %d", ErrInvalidState, turn.TurnIndex, len(turn.Players))
	}

	actor := turn.Players[turn.TurnIndex]
	from, ok := turn.Positions[actor.ID]
	if !ok {
		from = NotEntered
	}

	out := Outcome{
		Player:   actor,
		Dice:     turn.Dice,
		From:     from,
		To:       from,
		NextTurn: turn.TurnIndex,
	}

	if from == NotEntered {
		// Entering needs an exact entry roll and always earns another roll.
		if turn.Dice == EntryRoll {
			out.To = 0
			out.Moved = true
			out.ExtraTurn = true
		}
	} else {
		candidate := from + turn.Dice
		switch {
		case candidate > rules.BoardSize:
			out.ExtraTurn = turn.Dice == BonusRoll
		case candidate == rules.BoardSize:
			out.To = candidate
			out.Moved = true
			winner := actor
			out.Winner = &winner
		default:
			out.To = candidate
			out.Moved = true
			out.ExtraTurn = turn.Dice == BonusRoll
		}
	}

	if out.Moved && out.Winner == nil && out.To != NotEntered {
		for _, p := range turn.Players {
			if p.ID == actor.ID {
				continue
			}
			if pos, ok := turn.Positions[p.ID]; ok && pos == out.To {
				out.Captures = append(out.Captures, p)
			}
		}
	}

	if out.Winner == nil && !out.ExtraTurn {
		out.NextTurn = (turn.TurnIndex + 1) % len(turn.Players)
	}

	return out, nil
}

// Captured returns the captured opponent reported for the roll. When
// several opponents shared the landing square all of them are sent back,
// and the last one in roster order is reported.
func (o Outcome) Captured() (Player, bool) {
	if len(o.Captures) == 0 {
		return Player{}, false
	}
	return o.Captures[len(o.Captures)-1], true
}

// Apply commits a resolved outcome to the state.
func (s *State) Apply(out Outcome) {
	if out.Moved {
		s.Positions[out.Player.ID] = out.To
	}
	for _, p := range out.Captures {
		s.Positions[p.ID] = NotEntered
	}
	if out.Winner != nil {
		s.Started = false
		return
	}
	s.TurnIndex = out.NextTurn
}
