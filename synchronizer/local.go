package synchronizer

import (
	"github.com/wfunc/roomsync/envelope"
	"github.com/wfunc/roomsync/game"
)

// The helpers below check the local copy first, as a UI would before letting
// a click through, and broadcast only when the action looks legal here.

// Sit requests seat for the local participant.
func (s *Synchronizer) Sit(seat game.SeatIndex) error {
	if err := game.Sit(s.machine.Seats(), seat, s.ctx.Self); err != nil {
		return err
	}
	return s.OnLocalAction(envelope.ActSit, envelope.Sit{Seat: int(seat)})
}

// Move plays target from the local participant's seat.
func (s *Synchronizer) Move(target int) error {
	seat := s.machine.SeatOf(s.ctx.Self.ID)
	if seat == game.NoSeat {
		return game.ErrNotSeated
	}
	mv := game.Move{Seat: seat, Target: target}
	if _, err := game.Apply(s.rules, s.machine.Seats(), s.machine.State(), s.ctx.Self.ID, mv); err != nil {
		return err
	}
	return s.OnLocalAction(envelope.ActMove, envelope.Move{Seat: int(seat), Target: target})
}

// Leave gives up the local participant's seat, if any.
func (s *Synchronizer) Leave() error {
	if s.machine.SeatOf(s.ctx.Self.ID) == game.NoSeat {
		return nil
	}
	return s.OnLocalAction(envelope.ActLeave, nil)
}
