package envelope

import (
	"encoding/json"
	"fmt"
)

// Sit asks for a seat. The occupant is taken from the envelope's actor fields.
type Sit struct {
	Seat int `json:"seat"`
}

// Move places at Target for Seat. Target is game specific: a column for
// connect-four, a cell index for tic-tac-toe, a throw for rock-paper-scissors.
type Move struct {
	Seat   int `json:"seat"`
	Target int `json:"target"`
}

// Persist is the body of game:persist_state. FullState is kept opaque so the
// relay can store it without knowing any game.
type Persist struct {
	RoomID    string          `json:"roomId"`
	FullState json.RawMessage `json:"fullState"`
}

func (p Persist) Validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("%w: persist without roomId", ErrMalformed)
	}
	if !json.Valid(p.FullState) {
		return fmt.Errorf("%w: persist fullState is not JSON", ErrMalformed)
	}
	return nil
}

// Ghost is the body of user:ghost.
type Ghost struct {
	UserID  string `json:"userId"`
	IsGhost bool   `json:"isGhost"`
}
