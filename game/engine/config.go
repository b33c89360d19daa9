package engine

import (
	"errors"
	"fmt"
)

var ErrInvalidRules = errors.New("invalid rules")

// DefaultRules returns the rules of the standard 30-square board.
func DefaultRules() Rules {
	return Rules{BoardSize: DefaultBoardSize}
}

// Validate checks that the rules describe a playable board.
func (r Rules) Validate() error {
	if r.BoardSize < MinBoardSize || r.BoardSize > MaxBoardSize {
		return fmt.Errorf("%w: board_size must be between %d and %d, got %d",
			ErrInvalidRules, MinBoardSize, MaxBoardSize, r.BoardSize)
	}
	return nil
}
