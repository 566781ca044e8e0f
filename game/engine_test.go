package game

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = Participant{ID: "A", Name: "Alice", Color: "#ef4444"}
	bob   = Participant{ID: "B", Name: "Bob", Color: "#facc15"}
	carol = Participant{ID: "C", Name: "Carol", Color: "#22c55e"}
)

func seated(t *testing.T, r Rules) *Machine {
	t.Helper()
	m := NewMachine(r)
	require.NoError(t, m.Sit(Seat1, alice))
	require.NoError(t, m.Sit(Seat2, bob))
	return m
}

func TestConnectFour_VerticalWinForSeatOne(t *testing.T) {
	m := seated(t, ConnectFour())

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Move("A", Move{Seat: Seat1, Target: 3}))
		require.NoError(t, m.Move("B", Move{Seat: Seat2, Target: 4}))
		assert.Equal(t, Outcome{}, m.CheckTerminal())
	}
	require.NoError(t, m.Move("A", Move{Seat: Seat1, Target: 3}))

	assert.Equal(t, Outcome{Winner: Seat1}, m.CheckTerminal())
	assert.True(t, m.State().Terminal)
	assert.Equal(t, Terminal, m.Phase())
}

func TestConnectFour_DiagonalWin(t *testing.T) {
	r := ConnectFour()
	b := r.NewBoard()
	// seat 1 on the rising diagonal (5,0) (4,1) (3,2) (2,3)
	for i := 0; i < 4; i++ {
		b[5-i][i] = int(Seat1)
	}
	last := Cell{Row: 3, Col: 2}
	assert.Equal(t, Outcome{Winner: Seat1}, r.CheckTerminal(b, &last))
	assert.Equal(t, Outcome{Winner: Seat1}, r.CheckTerminal(b, nil))
}

func TestConnectFour_FullColumnRejected(t *testing.T) {
	r := ConnectFour()
	b := r.NewBoard()
	for row := range b {
		b[row][0] = int(Seat2)
	}
	_, err := r.Place(b, Seat1, 0)
	assert.ErrorIs(t, err, ErrCellTaken)
	_, err = r.Place(b, Seat1, 7)
	assert.ErrorIs(t, err, ErrBadTarget)
}

func TestTicTacToe_EveryLineWins(t *testing.T) {
	r := TicTacToe()
	for _, line := range tttLines {
		b := r.NewBoard()
		for _, idx := range line {
			c := indexCell(idx)
			b[c.Row][c.Col] = int(Seat2)
		}
		assert.Equal(t, Outcome{Winner: Seat2}, r.CheckTerminal(b, nil), "line %v", line)
	}
}

func TestTicTacToe_Draw(t *testing.T) {
	m := seated(t, TicTacToe())
	// X O X / X O O / O X X
	plays := []int{0, 1, 2, 4, 3, 5, 7, 6, 8}
	for i, idx := range plays {
		seat, actor := Seat1, "A"
		if i%2 == 1 {
			seat, actor = Seat2, "B"
		}
		require.NoError(t, m.Move(actor, Move{Seat: seat, Target: idx}), "play %d", i)
	}
	assert.Equal(t, Outcome{Draw: true}, m.CheckTerminal())
	assert.True(t, m.State().Terminal)
}

func TestRockPaperScissors(t *testing.T) {
	cases := []struct {
		one, two int
		want     Outcome
	}{
		{Rock, Scissors, Outcome{Winner: Seat1}},
		{Rock, Paper, Outcome{Winner: Seat2}},
		{Paper, Paper, Outcome{Draw: true}},
		{Scissors, Paper, Outcome{Winner: Seat1}},
	}
	for _, tc := range cases {
		m := seated(t, RockPaperScissors())
		require.NoError(t, m.Move("A", Move{Seat: Seat1, Target: tc.one}))
		assert.Equal(t, InProgress, m.Phase())
		require.NoError(t, m.Move("B", Move{Seat: Seat2, Target: tc.two}))
		assert.Equal(t, tc.want, m.CheckTerminal())
	}
}

func TestApply_Legality(t *testing.T) {
	r := ConnectFour()
	full := NewSeats(2)
	require.NoError(t, Sit(full, Seat1, alice))
	require.NoError(t, Sit(full, Seat2, bob))
	start := Create(r)

	cases := map[string]struct {
		seats Seats
		state GameState
		actor string
		move  Move
		want  error
	}{
		"waiting for players": {NewSeats(2), start, "A", Move{Seat: Seat1, Target: 0}, ErrAwaitingPlayers},
		"unseated actor":      {full, start, "C", Move{Seat: Seat1, Target: 0}, ErrNotSeated},
		"someone else's seat": {full, start, "B", Move{Seat: Seat1, Target: 0}, ErrNotSeated},
		"wrong turn":          {full, start, "B", Move{Seat: Seat2, Target: 0}, ErrNotYourTurn},
		"bad column":          {full, start, "A", Move{Seat: Seat1, Target: -1}, ErrBadTarget},
		"terminal":            {full, GameState{Board: r.NewBoard(), Turn: Seat1, Terminal: true, Winner: Seat2}, "A", Move{Seat: Seat1, Target: 0}, ErrGameOver},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			before := tc.state.Clone()
			_, err := Apply(r, tc.seats, tc.state, tc.actor, tc.move)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, ErrIllegalMove)
			assert.Empty(t, cmp.Diff(before, tc.state), "input state mutated")
		})
	}
}

func TestMachine_IllegalMoveLeavesStateAlone(t *testing.T) {
	m := seated(t, TicTacToe())
	require.NoError(t, m.Move("A", Move{Seat: Seat1, Target: 4}))
	before := m.State()

	assert.ErrorIs(t, m.Move("B", Move{Seat: Seat2, Target: 4}), ErrCellTaken)
	assert.ErrorIs(t, m.Move("A", Move{Seat: Seat1, Target: 0}), ErrNotYourTurn)

	assert.Empty(t, cmp.Diff(before, m.State()))
}

func TestSit_Conflicts(t *testing.T) {
	m := NewMachine(ConnectFour())
	require.NoError(t, m.Sit(Seat2, bob))

	assert.ErrorIs(t, m.Sit(Seat2, carol), ErrSeatTaken)
	assert.Equal(t, "B", m.Seats()[Seat2].ID)

	assert.ErrorIs(t, m.Sit(Seat1, bob), ErrAlreadySeated)
	assert.ErrorIs(t, m.Sit(SeatIndex(3), carol), ErrNoSuchSeat)
	assert.Equal(t, AwaitingPlayers, m.Phase())

	require.NoError(t, m.Sit(Seat1, alice))
	assert.Equal(t, InProgress, m.Phase())
}

func TestLeave_ClearsOnlyActorSeat(t *testing.T) {
	m := seated(t, ConnectFour())
	assert.False(t, m.Leave("C"))
	assert.True(t, m.Leave("A"))

	seats := m.Seats()
	assert.Nil(t, seats[Seat1])
	assert.Equal(t, "B", seats[Seat2].ID)
	assert.Equal(t, AwaitingPlayers, m.Phase())
}

func TestReset_PreservesSeats(t *testing.T) {
	r := ConnectFour()
	m := seated(t, r)
	require.NoError(t, m.Move("A", Move{Seat: Seat1, Target: 0}))
	seats := m.Seats()

	m.Reset()

	assert.Empty(t, cmp.Diff(r.NewBoard(), m.State().Board))
	assert.Equal(t, r.StartSeat, m.State().Turn)
	assert.False(t, m.State().Terminal)
	assert.Empty(t, cmp.Diff(seats, m.Seats()))
}

func TestRestore_FullOverwrite(t *testing.T) {
	r := ConnectFour()
	src := seated(t, r)
	require.NoError(t, src.Move("A", Move{Seat: Seat1, Target: 2}))
	snap := src.Snapshot()

	dst := NewMachine(r)
	require.NoError(t, dst.Sit(Seat2, carol))
	require.NoError(t, dst.Restore(snap))
	assert.Empty(t, cmp.Diff(snap, dst.Snapshot()))

	// the machine owns a copy
	snap.State.Board[0][0] = 9
	assert.Equal(t, Empty, dst.State().Board[0][0])
}

func TestRestore_RejectsForeignShape(t *testing.T) {
	m := NewMachine(ConnectFour())
	other := NewMachine(TicTacToe()).Snapshot()
	assert.ErrorIs(t, m.Restore(other), ErrBadSnapshot)
}

func TestRestore_RejectsBrokenInvariants(t *testing.T) {
	r := TicTacToe()
	good := seated(t, r).Snapshot()

	twice := good.Clone()
	twice.Seats[Seat2] = &Participant{ID: alice.ID, Name: alice.Name}

	noTurn := good.Clone()
	noTurn.State.Turn = NoSeat

	badTurn := good.Clone()
	badTurn.State.Turn = SeatIndex(3)

	for name, snap := range map[string]Snapshot{"same participant twice": twice, "no turn": noTurn, "turn out of range": badTurn} {
		m := seated(t, r)
		before := m.Snapshot()
		assert.ErrorIs(t, m.Restore(snap), ErrBadSnapshot, name)
		assert.Empty(t, cmp.Diff(before, m.Snapshot()), name)
	}

	// a finished game may carry any turn
	over := good.Clone()
	over.State.Terminal = true
	over.State.Winner = Seat1
	over.State.Turn = NoSeat
	assert.NoError(t, NewMachine(r).Restore(over))
}

// referenceWinner scans the whole board for any run of n.
func referenceWinner(b Board, n int) SeatIndex {
	for r := range b {
		for c := range b[r] {
			v := b[r][c]
			if v == Empty {
				continue
			}
			for _, ax := range axes {
				k := 1
				for ; k < n; k++ {
					nc := Cell{Row: r + k*ax[0], Col: c + k*ax[1]}
					if !b.In(nc) || b.At(nc) != v {
						break
					}
				}
				if k == n {
					return SeatIndex(v)
				}
			}
		}
	}
	return NoSeat
}

func TestConnectFour_RandomGamesMatchReference(t *testing.T) {
	r := ConnectFour()
	rng := rand.New(rand.NewSource(42))

	for game := 0; game < 200; game++ {
		m := seated(t, r)
		for !m.State().Terminal {
			st := m.State()
			actor := "A"
			if st.Turn == Seat2 {
				actor = "B"
			}
			// before the move no winner may exist yet
			require.Equal(t, NoSeat, referenceWinner(st.Board, c4Run))

			err := m.Move(actor, Move{Seat: st.Turn, Target: rng.Intn(c4Cols)})
			if err != nil {
				require.ErrorIs(t, err, ErrCellTaken)
			}
		}
		st := m.State()
		ref := referenceWinner(st.Board, c4Run)
		if ref != NoSeat {
			assert.Equal(t, ref, st.Winner)
		} else {
			assert.True(t, st.Draw)
			assert.True(t, st.Board.Full())
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := Builtin()
	assert.Equal(t, []string{"connect4", "rps", "tictactoe"}, reg.IDs())

	r, err := reg.Lookup("tictactoe")
	require.NoError(t, err)
	assert.Equal(t, "TTT", r.Prefix)

	_, err = reg.Lookup("chess")
	assert.ErrorIs(t, err, ErrUnknownGame)

	assert.Error(t, reg.Register(ConnectFour()))
	dupPrefix := TicTacToe()
	dupPrefix.ID = "ttt2"
	assert.Error(t, reg.Register(dupPrefix))
}

func TestRender(t *testing.T) {
	m := seated(t, RockPaperScissors())
	require.NoError(t, m.Move("A", Move{Seat: Seat1, Target: Rock}))
	out := m.Rules().Render(m.State())
	assert.Contains(t, out, "seat 1: thrown")
	assert.NotContains(t, out, "rock")

	c4 := seated(t, ConnectFour())
	require.NoError(t, c4.Move("A", Move{Seat: Seat1, Target: 0}))
	assert.Contains(t, c4.Rules().Render(c4.State()), "X . . . . . .")
}
