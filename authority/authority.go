// Package authority decides which peer is the source of truth for a game.
//
// The occupant of seat 1 is the authority. When seat 1 is empty there is no
// authority: state requests go unanswered and nothing is persisted until
// someone sits. Trusting that one peer is what lets the relay run without a
// rules engine; a malicious seat-1 occupant can therefore rewrite the game.
package authority

import "github.com/wfunc/roomsync/game"

// Seat is the seat whose occupant holds authority.
const Seat = game.Seat1

// Resolve returns the current authority, if any.
func Resolve(seats game.Seats) (game.Participant, bool) {
	p := seats[Seat]
	if p == nil {
		return game.Participant{}, false
	}
	return *p, true
}

// Is reports whether participantID is the authority for seats.
func Is(seats game.Seats, participantID string) bool {
	p, ok := Resolve(seats)
	return ok && participantID != "" && p.ID == participantID
}
