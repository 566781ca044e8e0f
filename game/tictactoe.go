package game

import (
	"strconv"
	"strings"
	"time"
)

// tttLines are the eight winning triples as cell indexes 0..8.
var tttLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToe is played on a 3x3 board; the move target is a cell index 0..8
// in row-major order.
func TicTacToe() Rules {
	return Rules{
		ID:         "tictactoe",
		Prefix:     "TTT",
		Name:       "Tic Tac Toe",
		Seats:      2,
		StartSeat:  Seat1,
		ResetDelay: 3 * time.Second,
		Size:       Size{Width: 380, Height: 500},

		NewBoard:      func() Board { return NewBoard(3, 3) },
		Place:         placeAtIndex,
		CheckTerminal: tttOutcome,
		Render:        renderTicTacToe,
	}
}

func indexCell(i int) Cell { return Cell{Row: i / 3, Col: i % 3} }

func placeAtIndex(b Board, seat SeatIndex, idx int) (Cell, error) {
	if idx < 0 || idx > 8 {
		return Cell{}, ErrBadTarget
	}
	c := indexCell(idx)
	if b.At(c) != Empty {
		return Cell{}, ErrCellTaken
	}
	b[c.Row][c.Col] = int(seat)
	return c, nil
}

func tttOutcome(b Board, _ *Cell) Outcome {
	for _, line := range tttLines {
		v := b.At(indexCell(line[0]))
		if v != Empty && v == b.At(indexCell(line[1])) && v == b.At(indexCell(line[2])) {
			return Outcome{Winner: SeatIndex(v)}
		}
	}
	if b.Full() {
		return Outcome{Draw: true}
	}
	return Outcome{}
}

func renderTicTacToe(st GameState) string {
	var sb strings.Builder
	for r, row := range st.Board {
		for c, v := range row {
			if v == Empty {
				sb.WriteString(strconv.Itoa(r*3 + c))
			} else {
				sb.WriteString(mark(SeatIndex(v)))
			}
			if c < 2 {
				sb.WriteString(" | ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
