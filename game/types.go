// Package game is the generic two-seat, alternating-turn game engine. Concrete
// games are Rules records registered by id; the engine never branches on
// which game it is running.
package game

import "fmt"

// SeatIndex names a seat. Seats are numbered from 1; NoSeat means none.
type SeatIndex int

const (
	NoSeat SeatIndex = 0
	Seat1  SeatIndex = 1
	Seat2  SeatIndex = 2
)

// Other returns the opposing seat in a two-seat game.
func (s SeatIndex) Other() SeatIndex {
	if s == Seat1 {
		return Seat2
	}
	return Seat1
}

type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Seats maps every seat of a game to its occupant; nil means empty.
type Seats map[SeatIndex]*Participant

func NewSeats(n int) Seats {
	s := make(Seats, n)
	for i := 1; i <= n; i++ {
		s[SeatIndex(i)] = nil
	}
	return s
}

func (s Seats) Clone() Seats {
	out := make(Seats, len(s))
	for k, p := range s {
		if p != nil {
			cp := *p
			out[k] = &cp
		} else {
			out[k] = nil
		}
	}
	return out
}

// SeatOf returns the seat held by participant id, or NoSeat.
func (s Seats) SeatOf(id string) SeatIndex {
	for k, p := range s {
		if p != nil && p.ID == id {
			return k
		}
	}
	return NoSeat
}

func (s Seats) Occupant(seat SeatIndex) *Participant { return s[seat] }

// Full reports whether every seat is taken.
func (s Seats) Full() bool {
	if len(s) == 0 {
		return false
	}
	for _, p := range s {
		if p == nil {
			return false
		}
	}
	return true
}

// Board is a row-major grid. 0 is an empty cell; other values are game
// specific (seat indexes for grid games).
type Board [][]int

const Empty = 0

func NewBoard(rows, cols int) Board {
	b := make(Board, rows)
	for r := range b {
		b[r] = make([]int, cols)
	}
	return b
}

func (b Board) Clone() Board {
	out := make(Board, len(b))
	for r := range b {
		out[r] = append([]int(nil), b[r]...)
	}
	return out
}

func (b Board) Rows() int { return len(b) }

func (b Board) Cols() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

func (b Board) In(c Cell) bool {
	return c.Row >= 0 && c.Row < b.Rows() && c.Col >= 0 && c.Col < b.Cols()
}

func (b Board) At(c Cell) int { return b[c.Row][c.Col] }

// Full reports whether no empty cell remains.
func (b Board) Full() bool {
	for _, row := range b {
		for _, v := range row {
			if v == Empty {
				return false
			}
		}
	}
	return true
}

func (b Board) sameShape(o Board) bool {
	if len(b) != len(o) {
		return false
	}
	for r := range b {
		if len(b[r]) != len(o[r]) {
			return false
		}
	}
	return true
}

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Outcome of a finished game: a winning seat, a draw, or neither.
type Outcome struct {
	Winner SeatIndex
	Draw   bool
}

func (o Outcome) Decided() bool { return o.Winner != NoSeat || o.Draw }

func (o Outcome) String() string {
	switch {
	case o.Draw:
		return "draw"
	case o.Winner != NoSeat:
		return fmt.Sprintf("winner(seat %d)", o.Winner)
	default:
		return "none"
	}
}

type GameState struct {
	Board    Board     `json:"board"`
	Turn     SeatIndex `json:"turn"`
	Terminal bool      `json:"terminal"`
	Winner   SeatIndex `json:"winner"`
	Draw     bool      `json:"draw"`
	Last     *Cell     `json:"last,omitempty"`
}

func (s GameState) Clone() GameState {
	out := s
	out.Board = s.Board.Clone()
	if s.Last != nil {
		c := *s.Last
		out.Last = &c
	}
	return out
}

func (s GameState) Outcome() Outcome {
	return Outcome{Winner: s.Winner, Draw: s.Draw}
}

// Phase is derived from seats and state, never stored.
type Phase string

const (
	AwaitingPlayers Phase = "AWAITING_PLAYERS"
	InProgress      Phase = "IN_PROGRESS"
	Terminal        Phase = "TERMINAL"
)

func PhaseOf(seats Seats, st GameState) Phase {
	switch {
	case st.Terminal:
		return Terminal
	case !seats.Full():
		return AwaitingPlayers
	default:
		return InProgress
	}
}

// Move is a request by the occupant of Seat to play at Target.
type Move struct {
	Seat   SeatIndex
	Target int
}

// Snapshot is the full replicated state of one game instance.
type Snapshot struct {
	Seats Seats     `json:"seats"`
	State GameState `json:"gameState"`
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{Seats: s.Seats.Clone(), State: s.State.Clone()}
}

// FullState is what the authority persists and what a restore delivers.
type FullState struct {
	ActiveGameID string    `json:"activeGameId"`
	Seats        Seats     `json:"seats"`
	State        GameState `json:"gameState"`
}

func (f FullState) Snapshot() Snapshot {
	return Snapshot{Seats: f.Seats, State: f.State}
}
