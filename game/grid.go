package game

// axes are the four line directions a run can lie along.
var axes = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// runAt counts contiguous cells equal to the value at c along the axis
// (dr, dc), walking outward in both directions from c.
func runAt(b Board, c Cell, dr, dc int) int {
	v := b.At(c)
	count := 1
	for _, sign := range [2]int{1, -1} {
		for k := 1; ; k++ {
			n := Cell{Row: c.Row + sign*k*dr, Col: c.Col + sign*k*dc}
			if !b.In(n) || b.At(n) != v {
				break
			}
			count++
		}
	}
	return count
}

// lineThrough reports whether the mark at c is part of a run of at least n.
func lineThrough(b Board, c Cell, n int) bool {
	if b.At(c) == Empty {
		return false
	}
	for _, ax := range axes {
		if runAt(b, c, ax[0], ax[1]) >= n {
			return true
		}
	}
	return false
}

// runOutcome is the terminal check shared by grid games that win on a run of
// n: anchored at last when given, otherwise every occupied cell is tried.
func runOutcome(n int) func(Board, *Cell) Outcome {
	return func(b Board, last *Cell) Outcome {
		if last != nil && b.In(*last) {
			if lineThrough(b, *last, n) {
				return Outcome{Winner: SeatIndex(b.At(*last))}
			}
		} else {
			for r := range b {
				for c := range b[r] {
					cell := Cell{Row: r, Col: c}
					if lineThrough(b, cell, n) {
						return Outcome{Winner: SeatIndex(b.At(cell))}
					}
				}
			}
		}
		if b.Full() {
			return Outcome{Draw: true}
		}
		return Outcome{}
	}
}

func mark(seat SeatIndex) string {
	switch seat {
	case Seat1:
		return "X"
	case Seat2:
		return "O"
	default:
		return "."
	}
}
