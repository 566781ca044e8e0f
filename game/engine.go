package game

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove = errors.New("game: illegal move")

	ErrGameOver        = fmt.Errorf("%w: game is over", ErrIllegalMove)
	ErrAwaitingPlayers = fmt.Errorf("%w: waiting for players", ErrIllegalMove)
	ErrNotSeated       = fmt.Errorf("%w: actor does not hold the seat", ErrIllegalMove)
	ErrNotYourTurn     = fmt.Errorf("%w: not this seat's turn", ErrIllegalMove)
	ErrCellTaken       = fmt.Errorf("%w: target is not empty", ErrIllegalMove)
	ErrBadTarget       = fmt.Errorf("%w: target out of range", ErrIllegalMove)
)

var (
	ErrSeatConflict  = errors.New("game: seat conflict")
	ErrSeatTaken     = fmt.Errorf("%w: seat is occupied", ErrSeatConflict)
	ErrAlreadySeated = fmt.Errorf("%w: participant already holds a seat", ErrSeatConflict)
	ErrNoSuchSeat    = fmt.Errorf("%w: no such seat", ErrSeatConflict)
)

var ErrBadSnapshot = errors.New("game: snapshot does not fit this game")

// Create returns the initial state for r.
func Create(r Rules) GameState {
	return GameState{
		Board: r.NewBoard(),
		Turn:  r.StartSeat,
	}
}

// Apply validates mv for actorID and returns the resulting state. st is never
// modified; on error the zero state is returned alongside the error.
func Apply(r Rules, seats Seats, st GameState, actorID string, mv Move) (GameState, error) {
	switch {
	case st.Terminal:
		return GameState{}, ErrGameOver
	case !seats.Full():
		return GameState{}, ErrAwaitingPlayers
	}
	occupant := seats[mv.Seat]
	if occupant == nil || occupant.ID != actorID {
		return GameState{}, ErrNotSeated
	}
	if mv.Seat != st.Turn {
		return GameState{}, ErrNotYourTurn
	}

	next := st.Clone()
	cell, err := r.Place(next.Board, mv.Seat, mv.Target)
	if err != nil {
		return GameState{}, err
	}
	next.Last = &cell

	if out := r.CheckTerminal(next.Board, next.Last); out.Decided() {
		next.Terminal = true
		next.Winner = out.Winner
		next.Draw = out.Draw
		return next, nil
	}
	next.Turn = mv.Seat.Other()
	return next, nil
}

// CheckTerminal evaluates st's board with r's predicate, anchored at the last
// placed cell when known.
func CheckTerminal(r Rules, st GameState) Outcome {
	return r.CheckTerminal(st.Board, st.Last)
}

// Reset returns a fresh state for r. Seats are not part of the state and are
// therefore untouched.
func Reset(r Rules) GameState { return Create(r) }

// Sit places p in seat.
func Sit(seats Seats, seat SeatIndex, p Participant) error {
	current, ok := seats[seat]
	switch {
	case !ok:
		return ErrNoSuchSeat
	case current != nil:
		return ErrSeatTaken
	case seats.SeatOf(p.ID) != NoSeat:
		return ErrAlreadySeated
	}
	seats[seat] = &p
	return nil
}

// Leave empties any seat held by id and reports whether one was held.
func Leave(seats Seats, id string) bool {
	vacated := false
	for k, p := range seats {
		if p != nil && p.ID == id {
			seats[k] = nil
			vacated = true
		}
	}
	return vacated
}

// Machine is the stateful holder of one game instance's seats and state.
// It is not safe for concurrent use; callers drive it from one goroutine.
type Machine struct {
	rules Rules
	seats Seats
	state GameState
}

func NewMachine(r Rules) *Machine {
	return &Machine{
		rules: r,
		seats: NewSeats(r.Seats),
		state: Create(r),
	}
}

func (m *Machine) Rules() Rules { return m.rules }

// Seats returns a copy of the seats.
func (m *Machine) Seats() Seats { return m.seats.Clone() }

// State returns a copy of the game state.
func (m *Machine) State() GameState { return m.state.Clone() }

func (m *Machine) Phase() Phase { return PhaseOf(m.seats, m.state) }

func (m *Machine) SeatOf(id string) SeatIndex { return m.seats.SeatOf(id) }

func (m *Machine) Sit(seat SeatIndex, p Participant) error {
	return Sit(m.seats, seat, p)
}

func (m *Machine) Leave(id string) bool {
	return Leave(m.seats, id)
}

func (m *Machine) Move(actorID string, mv Move) error {
	next, err := Apply(m.rules, m.seats, m.state, actorID, mv)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Machine) CheckTerminal() Outcome { return CheckTerminal(m.rules, m.state) }

func (m *Machine) Reset() { m.state = Reset(m.rules) }

func (m *Machine) Snapshot() Snapshot {
	return Snapshot{Seats: m.Seats(), State: m.State()}
}

// Restore overwrites seats and state with s. Nothing is merged. A snapshot
// whose seat set or board shape does not belong to this game is rejected, as
// is one seating a participant twice or giving a live game no valid turn.
func (m *Machine) Restore(s Snapshot) error {
	if len(s.Seats) != m.rules.Seats {
		return fmt.Errorf("%w: %d seats", ErrBadSnapshot, len(s.Seats))
	}
	seen := make(map[string]SeatIndex, len(s.Seats))
	for k, p := range s.Seats {
		if k < Seat1 || int(k) > m.rules.Seats {
			return fmt.Errorf("%w: seat %d", ErrBadSnapshot, k)
		}
		if p == nil {
			continue
		}
		if other, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: %s holds seats %d and %d", ErrBadSnapshot, p.ID, other, k)
		}
		seen[p.ID] = k
	}
	if !s.State.Terminal && (s.State.Turn < Seat1 || int(s.State.Turn) > m.rules.Seats) {
		return fmt.Errorf("%w: turn %d", ErrBadSnapshot, s.State.Turn)
	}
	if !m.rules.NewBoard().sameShape(s.State.Board) {
		return fmt.Errorf("%w: board shape", ErrBadSnapshot)
	}
	c := s.Clone()
	m.seats = c.Seats
	m.state = c.State
	return nil
}
