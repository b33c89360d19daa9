package engine

import (
	"fmt"
	"strings"
)

// Progress returns the number of filled progress segments for a position.
func Progress(position, boardSize int) int {
	if position <= NotEntered || boardSize <= 0 {
		return 0
	}
	filled := position * ProgressSegments / boardSize
	if filled < 0 {
		return 0
	}
	if filled > ProgressSegments {
		return ProgressSegments
	}
	return filled
}

// ProgressBar renders a fixed-width bar such as [●●●-------].
func ProgressBar(position, boardSize int) string {
	filled := Progress(position, boardSize)
	return "[" + strings.Repeat("●", filled) + strings.Repeat("-", ProgressSegments-filled) + "]"
}

// FormatBoard renders one header line and one line per player in turn
// order. The current player is marked only while the game is started.
func FormatBoard(rules Rules, state State) string {
	lines := make([]string, 0, len(state.Players)+1)
	lines = append(lines, fmt.Sprintf("📋 Ludo Board | players: %d | turn idx: %d", len(state.Players), state.TurnIndex))

	for idx, p := range state.Players {
		pos := state.Position(p.ID)

		status := "🏁 Not entered"
		if pos != NotEntered {
			status = fmt.Sprintf("%d/%d", pos, rules.BoardSize)
		}

		marker := ""
		if state.Started && idx == state.TurnIndex {
			marker = " <- current"
		}

		lines = append(lines, fmt.Sprintf("%s | %s %s%s", p.Name, status, ProgressBar(pos, rules.BoardSize), marker))
	}

	return strings.Join(lines, "\n")
}
