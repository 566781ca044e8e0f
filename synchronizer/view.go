package synchronizer

import (
	"fmt"

	"github.com/wfunc/roomsync/authority"
	"github.com/wfunc/roomsync/game"
)

type SeatView struct {
	Seat     game.SeatIndex
	Occupant *game.Participant
	Away     bool
	Active   bool
	Mine     bool
}

// View is everything a renderer needs to draw the game.
type View struct {
	GameID    string
	GameName  string
	Seats     []SeatView
	Phase     game.Phase
	Turn      game.SeatIndex
	Outcome   game.Outcome
	MySeat    game.SeatIndex
	Authority bool
	Status    string
	Board     string
	State     game.GameState
}

func (s *Synchronizer) View() View {
	seats := s.machine.Seats()
	st := s.machine.State()
	self := s.ctx.Self.ID

	v := View{
		GameID:    s.rules.ID,
		GameName:  s.rules.Name,
		Phase:     game.PhaseOf(seats, st),
		Turn:      st.Turn,
		Outcome:   st.Outcome(),
		MySeat:    seats.SeatOf(self),
		Authority: authority.Is(seats, self),
		State:     st,
	}
	for i := 1; i <= s.rules.Seats; i++ {
		idx := game.SeatIndex(i)
		p := seats[idx]
		sv := SeatView{Seat: idx, Occupant: p}
		if p != nil {
			sv.Away = s.away[p.ID]
			sv.Mine = p.ID == self
			sv.Active = !st.Terminal && st.Turn == idx
		}
		v.Seats = append(v.Seats, sv)
	}
	v.Status = status(v, seats)
	if s.rules.Render != nil {
		v.Board = s.rules.Render(st)
	}
	return v
}

func status(v View, seats game.Seats) string {
	switch v.Phase {
	case game.Terminal:
		if v.Outcome.Draw {
			return "Draw"
		}
		if p := seats[v.Outcome.Winner]; p != nil {
			return fmt.Sprintf("%s Wins!", displayName(p))
		}
		return fmt.Sprintf("Seat %d Wins!", v.Outcome.Winner)
	case game.AwaitingPlayers:
		return "Waiting for players..."
	}
	if v.MySeat == v.Turn {
		return "YOUR TURN"
	}
	return fmt.Sprintf("%s's Turn", displayName(seats[v.Turn]))
}

func displayName(p *game.Participant) string {
	if p == nil || p.Name == "" {
		return "User"
	}
	return p.Name
}
