package synchronizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/roomsync/bus"
	"github.com/wfunc/roomsync/envelope"
	"github.com/wfunc/roomsync/game"
	"github.com/wfunc/roomsync/peer"
)

const room = "room-1"

var (
	alice = game.Participant{ID: "A", Name: "Alice", Color: "#ef4444"}
	bob   = game.Participant{ID: "B", Name: "Bob", Color: "#facc15"}
	carol = game.Participant{ID: "C", Name: "Carol", Color: "#22c55e"}
)

type testPeer struct {
	ep    *bus.Endpoint
	sched *peer.ManualScheduler
	sync  *Synchronizer
	views []View
}

func (p *testPeer) last() View { return p.views[len(p.views)-1] }

func newPeer(lb *bus.Loopback, self game.Participant, rules game.Rules) *testPeer {
	p := &testPeer{ep: lb.Connect(), sched: &peer.ManualScheduler{}}
	ctx := &peer.Context{RoomID: room, Self: self, Bus: p.ep, Scheduler: p.sched}
	p.sync = New(ctx, rules, RenderFunc(func(v View) { p.views = append(p.views, v) }))
	p.sync.Attach()
	return p
}

// store records game:persist_state traffic like the relay would.
type store struct {
	saved []envelope.Persist
}

func newStore(lb *bus.Loopback) *store {
	s := &store{}
	lb.Connect().On(envelope.EventPersist, func(data []byte) {
		var p envelope.Persist
		if err := json.Unmarshal(data, &p); err == nil {
			s.saved = append(s.saved, p)
		}
	})
	return s
}

func (s *store) latest(t *testing.T) game.FullState {
	t.Helper()
	require.NotEmpty(t, s.saved)
	var full game.FullState
	require.NoError(t, json.Unmarshal(s.saved[len(s.saved)-1].FullState, &full))
	return full
}

func seatBoth(t *testing.T, lb *bus.Loopback, a, b *testPeer) {
	t.Helper()
	require.NoError(t, a.sync.Sit(game.Seat1))
	lb.Flush()
	require.NoError(t, b.sync.Sit(game.Seat2))
	lb.Flush()
}

func mustEnvelope(t *testing.T, actor game.Participant, prefix string, action envelope.Action, payload any) envelope.Envelope {
	t.Helper()
	env, err := envelope.New(room, actor.ID, actor.Name, actor.Color, prefix, action, payload)
	require.NoError(t, err)
	return env
}

func TestLocalActionAppliesOnlyOnEcho(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())

	require.NoError(t, a.sync.Sit(game.Seat1))
	assert.Equal(t, game.NoSeat, a.sync.View().MySeat)

	lb.Flush()
	assert.Equal(t, game.Seat1, a.sync.View().MySeat)
	assert.True(t, a.sync.IsAuthority())
}

func TestSitAndMoveReachEveryPeer(t *testing.T) {
	lb := bus.NewLoopback()
	st := newStore(lb)
	a := newPeer(lb, alice, game.ConnectFour())
	b := newPeer(lb, bob, game.ConnectFour())
	seatBoth(t, lb, a, b)

	require.NoError(t, a.sync.Move(3))
	lb.Flush()

	for _, p := range []*testPeer{a, b} {
		v := p.sync.View()
		assert.Equal(t, game.InProgress, v.Phase)
		assert.Equal(t, game.Seat2, v.Turn)
		assert.Equal(t, 1, v.State.Board[5][3])
	}
	assert.Equal(t, "YOUR TURN", b.last().Status)
	assert.Equal(t, "Bob's Turn", a.last().Status)

	full := st.latest(t)
	assert.Equal(t, "connect4", full.ActiveGameID)
	assert.Empty(t, cmp.Diff(a.sync.Snapshot(), full.Snapshot()))
}

func TestOnlyAuthorityPersists(t *testing.T) {
	lb := bus.NewLoopback()
	newStore(lb)
	a := newPeer(lb, alice, game.TicTacToe())
	b := newPeer(lb, bob, game.TicTacToe())
	seatBoth(t, lb, a, b)

	require.NoError(t, a.sync.Move(4))
	lb.Flush()

	assert.Contains(t, a.ep.Sent, envelope.EventPersist)
	assert.NotContains(t, b.ep.Sent, envelope.EventPersist)
}

func TestLocalMoveRejectedBeforeBroadcast(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	b := newPeer(lb, bob, game.ConnectFour())
	seatBoth(t, lb, a, b)
	sent := len(b.ep.Sent)

	assert.ErrorIs(t, b.sync.Move(0), game.ErrNotYourTurn)
	assert.Len(t, b.ep.Sent, sent)
}

func TestReconnectingPeerCatchesUp(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	b := newPeer(lb, bob, game.ConnectFour())
	seatBoth(t, lb, a, b)
	require.NoError(t, a.sync.Move(3))
	lb.Flush()

	c := newPeer(lb, carol, game.ConnectFour())
	require.NoError(t, c.sync.RequestState())
	lb.Flush()

	want := a.sync.Snapshot()
	assert.Empty(t, cmp.Diff(want, c.sync.Snapshot()))
	assert.Empty(t, cmp.Diff(want, b.sync.Snapshot()))
	assert.Equal(t, game.Seat2, c.sync.View().Turn)

	// Carol is a spectator; a forced MOVE from her changes nothing anywhere.
	require.NoError(t, c.sync.OnLocalAction(envelope.ActMove, envelope.Move{Seat: 2, Target: 0}))
	lb.Flush()
	for _, p := range []*testPeer{a, b, c} {
		assert.Empty(t, cmp.Diff(want, p.sync.Snapshot()))
	}
}

func TestStateRequestWithoutAuthorityGoesUnanswered(t *testing.T) {
	lb := bus.NewLoopback()
	b := newPeer(lb, bob, game.ConnectFour())
	c := newPeer(lb, carol, game.ConnectFour())
	require.NoError(t, b.sync.Sit(game.Seat2))
	lb.Flush()

	require.NoError(t, c.sync.RequestState())
	lb.Flush()

	// Bob's only emission is his own SIT.
	assert.Equal(t, []string{envelope.EventAction}, b.ep.Sent)
	assert.False(t, c.sync.IsAuthority())
}

func TestConflictingSitsConvergeAfterSync(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	b := newPeer(lb, bob, game.ConnectFour())
	c := newPeer(lb, carol, game.ConnectFour())
	require.NoError(t, a.sync.Sit(game.Seat1))
	lb.Flush()

	// B and C both claim seat 2 and each sees its own claim first.
	sitB := mustEnvelope(t, bob, "C4", envelope.ActSit, envelope.Sit{Seat: 2})
	sitC := mustEnvelope(t, carol, "C4", envelope.ActSit, envelope.Sit{Seat: 2})
	a.sync.OnRemoteAction(sitB)
	a.sync.OnRemoteAction(sitC)
	b.sync.OnRemoteAction(sitB)
	b.sync.OnRemoteAction(sitC)
	c.sync.OnRemoteAction(sitC)
	c.sync.OnRemoteAction(sitB)
	assert.Equal(t, "C", c.sync.Snapshot().Seats[game.Seat2].ID)

	require.NoError(t, c.sync.RequestState())
	lb.Flush()

	want := a.sync.Snapshot()
	assert.Equal(t, "B", want.Seats[game.Seat2].ID)
	for _, p := range []*testPeer{b, c} {
		assert.Empty(t, cmp.Diff(want, p.sync.Snapshot()))
	}
}

func TestStateSyncOverwritesDivergentState(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.TicTacToe())
	b := newPeer(lb, bob, game.TicTacToe())
	seatBoth(t, lb, a, b)

	// b drifts: it sees a move nobody else saw.
	b.sync.OnRemoteAction(mustEnvelope(t, alice, "TTT", envelope.ActMove, envelope.Move{Seat: 1, Target: 8}))
	require.NotEmpty(t, cmp.Diff(a.sync.Snapshot(), b.sync.Snapshot()))

	require.NoError(t, b.sync.RequestState())
	lb.Flush()

	wantJSON, err := json.Marshal(a.sync.Snapshot())
	require.NoError(t, err)
	gotJSON, err := json.Marshal(b.sync.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, string(wantJSON), string(gotJSON))
}

func TestForeignAndMalformedEnvelopesIgnored(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	before := a.sync.Snapshot()

	a.sync.OnRemoteAction(mustEnvelope(t, bob, "TTT", envelope.ActSit, envelope.Sit{Seat: 1}))
	other := mustEnvelope(t, bob, "C4", envelope.ActSit, envelope.Sit{Seat: 1})
	other.RoomID = "elsewhere"
	a.sync.OnRemoteAction(other)
	bad := mustEnvelope(t, bob, "C4", envelope.ActMove, nil)
	bad.Payload = json.RawMessage(`{"seat":"one"}`)
	a.sync.OnRemoteAction(bad)
	a.sync.handle([]byte(`not json`))

	assert.Empty(t, cmp.Diff(before, a.sync.Snapshot()))
	assert.Empty(t, a.views)
}

func TestAuthorityResetsAfterDelay(t *testing.T) {
	lb := bus.NewLoopback()
	st := newStore(lb)
	a := newPeer(lb, alice, game.TicTacToe())
	b := newPeer(lb, bob, game.TicTacToe())
	seatBoth(t, lb, a, b)

	for _, m := range []struct {
		p      *testPeer
		target int
	}{{a, 0}, {b, 3}, {a, 1}, {b, 4}, {a, 2}} {
		require.NoError(t, m.p.sync.Move(m.target))
		lb.Flush()
	}
	require.Equal(t, game.Terminal, b.sync.View().Phase)
	assert.Equal(t, "Alice Wins!", b.last().Status)
	assert.Equal(t, 1, a.sched.Pending())
	assert.Zero(t, b.sched.Pending())

	a.sched.Advance(2 * time.Second)
	lb.Flush()
	assert.Equal(t, game.Terminal, b.sync.View().Phase)

	a.sched.Advance(time.Second)
	lb.Flush()
	for _, p := range []*testPeer{a, b} {
		v := p.sync.View()
		assert.Equal(t, game.InProgress, v.Phase)
		assert.Equal(t, game.Seat1, v.Turn)
		assert.Equal(t, "A", v.Seats[0].Occupant.ID)
		assert.Equal(t, "B", v.Seats[1].Occupant.ID)
	}
	full := st.latest(t)
	assert.False(t, full.State.Terminal)
}

func TestDetachCancelsResetAndStopsApplying(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.RockPaperScissors())
	b := newPeer(lb, bob, game.RockPaperScissors())
	seatBoth(t, lb, a, b)
	require.NoError(t, a.sync.Move(game.Rock))
	lb.Flush()
	require.NoError(t, b.sync.Move(game.Scissors))
	lb.Flush()
	require.Equal(t, 1, a.sched.Pending())

	a.sync.Detach()
	assert.Zero(t, a.sched.Pending())
	a.sched.Advance(time.Minute)
	lb.Flush()
	assert.Equal(t, game.Terminal, b.sync.View().Phase)

	before := a.sync.Snapshot()
	a.sync.OnRemoteAction(mustEnvelope(t, bob, "RPS", envelope.ActReset, nil))
	assert.Empty(t, cmp.Diff(before, a.sync.Snapshot()))
	assert.ErrorIs(t, a.sync.OnLocalAction(envelope.ActReset, nil), ErrDetached)
}

func TestLeaveFreesSeatAndHandsOverAuthority(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	b := newPeer(lb, bob, game.ConnectFour())
	seatBoth(t, lb, a, b)

	require.NoError(t, a.sync.Leave())
	lb.Flush()
	assert.Nil(t, b.sync.Snapshot().Seats[game.Seat1])
	assert.False(t, b.sync.IsAuthority())
	assert.Equal(t, game.AwaitingPlayers, b.sync.View().Phase)

	require.NoError(t, b.sync.Leave())
	lb.Flush()
	require.NoError(t, b.sync.Sit(game.Seat1))
	lb.Flush()
	assert.True(t, b.sync.IsAuthority())
	assert.False(t, a.sync.IsAuthority())
}

func TestLeaveWhenUnseatedSendsNothing(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	require.NoError(t, a.sync.Leave())
	assert.Empty(t, a.ep.Sent)
}

func TestSetGhostOnlyFlagsSeated(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	b := newPeer(lb, bob, game.ConnectFour())
	seatBoth(t, lb, a, b)

	assert.False(t, a.sync.SetGhost("C", true))
	require.True(t, a.sync.SetGhost("B", true))
	v := a.last()
	assert.False(t, v.Seats[0].Away)
	assert.True(t, v.Seats[1].Away)

	// Away never blocks play.
	require.NoError(t, a.sync.Move(0))
	lb.Flush()
	require.NoError(t, b.sync.Move(1))
	lb.Flush()
	assert.Equal(t, game.Seat1, a.sync.View().Turn)

	require.True(t, a.sync.SetGhost("B", false))
	assert.False(t, a.last().Seats[1].Away)
}

func TestRestoreTerminalSnapshotArmsReset(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.RockPaperScissors())

	seats := game.NewSeats(2)
	seats[game.Seat1] = &alice
	seats[game.Seat2] = &bob
	board := game.NewBoard(1, 2)
	board[0][0], board[0][1] = game.Paper, game.Rock
	snap := game.Snapshot{Seats: seats, State: game.GameState{Board: board, Turn: game.Seat2, Terminal: true, Winner: game.Seat1}}

	require.NoError(t, a.sync.Restore(snap))
	assert.Equal(t, "Alice Wins!", a.last().Status)
	assert.Equal(t, 1, a.sched.Pending())
}

func TestRestoreRejectsForeignShape(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	snap := game.Snapshot{Seats: game.NewSeats(2), State: game.Create(game.TicTacToe())}
	assert.ErrorIs(t, a.sync.Restore(snap), game.ErrBadSnapshot)
}

func TestGhostLookupSeedsNewOccupants(t *testing.T) {
	lb := bus.NewLoopback()
	a := newPeer(lb, alice, game.ConnectFour())
	b := newPeer(lb, bob, game.ConnectFour())
	a.sync.UseGhosts(func(id string) bool { return id == "B" })

	seatBoth(t, lb, a, b)
	assert.True(t, a.last().Seats[1].Away)
	assert.False(t, b.last().Seats[1].Away)
}
