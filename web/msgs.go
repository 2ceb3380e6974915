package web

import (
	"encoding/json"

	"spywords"
	"spywords/game"
)

// Action is a client-to-server frame: an action name plus an
// action-specific payload.
type Action struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is a server-to-client frame. Everything pushed to clients,
// whether broadcast to a room or sent to a single requester, uses this
// envelope.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// GameFound is the payload for "gameFound".
type GameFound struct {
	Name string `json:"name"`
}

// GameJoined is the payload for "gameJoined", sent to the joiner only.
type GameJoined struct {
	Game   *game.Game       `json:"game"`
	Player *spywords.Player `json:"player"`
}

// PlayerUpdate is the payload for the events that carry one player:
// "newUserJoined", "spymasterAssigned", "teamSwitched", "playerLeft",
// and "playerDisconnected".
type PlayerUpdate struct {
	Player *spywords.Player `json:"player"`
}

// GameUpdate is the payload for the events that carry a full room
// snapshot: "updateGame" and "newGame".
type GameUpdate struct {
	Game *game.Game `json:"game"`
}

func errEvent(ge *spywords.GameError) Event {
	return Event{Event: "gameError", Payload: ge}
}

type createPayload struct {
	Name string `json:"name"`
}

type joinPayload struct {
	Room   string `json:"room"`
	Player struct {
		ID   string        `json:"id"`
		Name string        `json:"name"`
		Team spywords.Team `json:"team"`
	} `json:"player"`
}

type revealPayload struct {
	Card struct {
		Word string `json:"word"`
	} `json:"card"`
}
