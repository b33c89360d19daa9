package service

import (
	"errors"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/session"
)

// ErrInternal is reported when a command fails in an unexpected way.
var ErrInternal = errors.New("internal error")

// ErrInvalidInput is reported for malformed command arguments.
var ErrInvalidInput = errors.New("invalid input")

// Code is a stable, machine-friendly error classification
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeAlreadyActive    Code = "already_active"
	CodeAlreadyStarted   Code = "already_started"
	CodeAlreadyJoined    Code = "already_joined"
	CodeNotInGame        Code = "not_in_game"
	CodeNotEnoughPlayers Code = "not_enough_players"
	CodeNotStarted       Code = "not_started"
	CodeNotYourTurn      Code = "not_your_turn"
	CodeInvalidInput     Code = "invalid_input"
	CodePersistence      Code = "persistence_failure"
	CodeInternal         Code = "internal"
)

var codes = []struct {
	err  error
	code Code
}{
	{session.ErrNotFound, CodeNotFound},
	{session.ErrAlreadyActive, CodeAlreadyActive},
	{session.ErrAlreadyStarted, CodeAlreadyStarted},
	{session.ErrAlreadyJoined, CodeAlreadyJoined},
	{session.ErrNotInGame, CodeNotInGame},
	{session.ErrNotEnoughPlayers, CodeNotEnoughPlayers},
	{session.ErrNotStarted, CodeNotStarted},
	{session.ErrNotYourTurn, CodeNotYourTurn},
	{session.ErrInvalidSessionID, CodeInvalidInput},
	{session.ErrInvalidPlayerID, CodeInvalidInput},
	{engine.ErrInvalidDice, CodeInvalidInput},
	{ErrInvalidInput, CodeInvalidInput},
	{session.ErrPersistence, CodePersistence},
}

// CodeOf classifies err. Unknown errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Retryable reports whether repeating the same command may succeed.
func Retryable(err error) bool {
	return CodeOf(err) == CodePersistence
}
