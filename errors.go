package spywords

import (
	"errors"
	"fmt"
)

// ErrorKind is the wire-visible classification of a rule violation.
type ErrorKind string

const (
	// The requested room doesn't exist.
	GameNotFound = ErrorKind("GAME_NOT_FOUND")
	// A room with the requested name already exists.
	GameNameTaken = ErrorKind("GAME_NAME_TAKEN")
	// startGame was called on a room that is already underway.
	GameAlreadyStarted = ErrorKind("GAME_ALREADY_STARTED")
	// PlayerNameTaken is no longer produced now that identity is by ID,
	// but older clients still know the value.
	PlayerNameTaken = ErrorKind("PLAYER_NAME_TAKEN")
	// The referenced player isn't in the room.
	PlayerNotFound = ErrorKind("PLAYER_NOT_FOUND")
	// The revealed word isn't on the board.
	CardNotFound = ErrorKind("CARD_NOT_FOUND")
	// Rooms need at least four players to start.
	NotEnoughPlayers = ErrorKind("NOT_ENOUGH_PLAYERS")
	// Both teams need a spymaster before the game can start.
	NoSpymaster = ErrorKind("NO_SPYMASTER")
	// The target player's team already has a spymaster.
	SpymasterAlreadyAssigned = ErrorKind("SPYMASTER_ALREADY_ASSIGNED")
	// Spymasters have to relinquish the role before switching teams.
	SpymasterCannotSwitch = ErrorKind("SPYMASTER_CANNOT_SWITCH")
)

// GameError is a recoverable, request-scoped rule violation. It aborts
// the single requested mutation and is reported back to the requester,
// it never crashes the process or leaves a room half-updated.
type GameError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *GameError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func NewGameError(kind ErrorKind, format string, args ...interface{}) *GameError {
	return &GameError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsGameError unwraps err into a *GameError if there is one in the
// chain. Used at the dispatch boundary to decide what to send back.
func AsGameError(err error) (*GameError, bool) {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
