package game

import (
	"fmt"
	"strings"
	"time"
)

const (
	c4Rows = 6
	c4Cols = 7
	c4Run  = 4
)

// ConnectFour is a 7x6 gravity grid won by four in a row. The move target is
// a column; the piece drops to the lowest empty row.
func ConnectFour() Rules {
	return Rules{
		ID:         "connect4",
		Prefix:     "C4",
		Name:       "Connect 4",
		Seats:      2,
		StartSeat:  Seat1,
		ResetDelay: 5 * time.Second,
		Size:       Size{Width: 520, Height: 600},

		NewBoard:      func() Board { return NewBoard(c4Rows, c4Cols) },
		Place:         dropInColumn,
		CheckTerminal: runOutcome(c4Run),
		Render:        renderConnectFour,
	}
}

func dropInColumn(b Board, seat SeatIndex, col int) (Cell, error) {
	if col < 0 || col >= b.Cols() {
		return Cell{}, ErrBadTarget
	}
	for r := b.Rows() - 1; r >= 0; r-- {
		if b[r][col] == Empty {
			b[r][col] = int(seat)
			return Cell{Row: r, Col: col}, nil
		}
	}
	return Cell{}, ErrCellTaken
}

func renderConnectFour(st GameState) string {
	var sb strings.Builder
	for c := 0; c < st.Board.Cols(); c++ {
		fmt.Fprintf(&sb, "%d ", c)
	}
	sb.WriteString("\n")
	for _, row := range st.Board {
		for _, v := range row {
			sb.WriteString(mark(SeatIndex(v)))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
