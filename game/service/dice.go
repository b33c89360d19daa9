package service

import (
	crand "crypto/rand"
	"fmt"
	"math/big"

	"github.com/wricardo/ludo-engine/game/engine"
)

type cryptoDice struct{}

// NewDiceRoller returns a fair six-sided die backed by crypto/rand
func NewDiceRoller() DiceRoller {
	return cryptoDice{}
}

func (cryptoDice) Roll() (int, error) {
	n, err := crand.Int(crand.Reader, big.NewInt(engine.MaxDice))
	if err != nil {
		return 0, fmt.Errorf("read random dice: %w", err)
	}
	return int(n.Int64()) + engine.MinDice, nil
}
