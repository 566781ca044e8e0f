package game

import (
	"fmt"
	"strings"
	"time"
)

// Throws for rock-paper-scissors.
const (
	Rock     = 1
	Paper    = 2
	Scissors = 3
)

var throwNames = map[int]string{Rock: "rock", Paper: "paper", Scissors: "scissors"}

// ParseThrow maps a throw name to its value.
func ParseThrow(s string) (int, bool) {
	for v, name := range throwNames {
		if strings.EqualFold(s, name) {
			return v, true
		}
	}
	return 0, false
}

// RockPaperScissors keeps one throw per seat in a 1x2 board. Seats throw in
// turn; the game is decided once both have thrown.
func RockPaperScissors() Rules {
	return Rules{
		ID:         "rps",
		Prefix:     "RPS",
		Name:       "Rock Paper Scissors",
		Seats:      2,
		StartSeat:  Seat1,
		ResetDelay: 3 * time.Second,
		Size:       Size{Width: 420, Height: 550},

		NewBoard:      func() Board { return NewBoard(1, 2) },
		Place:         placeThrow,
		CheckTerminal: rpsOutcome,
		Render:        renderRPS,
	}
}

func placeThrow(b Board, seat SeatIndex, throw int) (Cell, error) {
	if _, ok := throwNames[throw]; !ok {
		return Cell{}, ErrBadTarget
	}
	c := Cell{Row: 0, Col: int(seat) - 1}
	if !b.In(c) {
		return Cell{}, ErrBadTarget
	}
	if b.At(c) != Empty {
		return Cell{}, ErrCellTaken
	}
	b[0][c.Col] = throw
	return c, nil
}

func beats(a, b int) bool {
	return (a == Rock && b == Scissors) || (a == Paper && b == Rock) || (a == Scissors && b == Paper)
}

func rpsOutcome(b Board, _ *Cell) Outcome {
	one, two := b[0][0], b[0][1]
	switch {
	case one == Empty || two == Empty:
		return Outcome{}
	case one == two:
		return Outcome{Draw: true}
	case beats(one, two):
		return Outcome{Winner: Seat1}
	default:
		return Outcome{Winner: Seat2}
	}
}

// renderRPS hides throws until the round is decided.
func renderRPS(st GameState) string {
	var sb strings.Builder
	for i, v := range st.Board[0] {
		shown := "waiting"
		switch {
		case v != Empty && st.Terminal:
			shown = throwNames[v]
		case v != Empty:
			shown = "thrown"
		}
		fmt.Fprintf(&sb, "seat %d: %s\n", i+1, shown)
	}
	return sb.String()
}
