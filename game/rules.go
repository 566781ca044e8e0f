package game

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Size is the panel size a game asks its host for.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rules describes one game type. The engine drives every game through these
// functions; there is no per-game subtype.
type Rules struct {
	ID     string
	Prefix string
	Name   string

	Seats      int
	StartSeat  SeatIndex
	ResetDelay time.Duration
	Size       Size

	NewBoard func() Board
	// Place resolves target to a cell for seat and writes seat's mark into b.
	// It must not write when it returns an error.
	Place func(b Board, seat SeatIndex, target int) (Cell, error)
	// CheckTerminal inspects b after a placement at last. last is nil when
	// the caller does not know the most recent move.
	CheckTerminal func(b Board, last *Cell) Outcome
	Render        func(st GameState) string
}

func (r Rules) validate() error {
	switch {
	case r.ID == "" || r.Prefix == "":
		return errors.New("game: rules need an id and a prefix")
	case r.Seats < 2:
		return fmt.Errorf("game: %s: at least two seats required", r.ID)
	case r.NewBoard == nil || r.Place == nil || r.CheckTerminal == nil:
		return fmt.Errorf("game: %s: missing board functions", r.ID)
	}
	return nil
}

var ErrUnknownGame = errors.New("game: unknown game type")

// Registry is the lookup table from type id to Rules.
type Registry struct {
	byID     map[string]Rules
	byPrefix map[string]string
}

func NewRegistry(rules ...Rules) (*Registry, error) {
	reg := &Registry{
		byID:     make(map[string]Rules),
		byPrefix: make(map[string]string),
	}
	for _, r := range rules {
		if err := reg.Register(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Builtin returns a registry holding connect-four, tic-tac-toe and
// rock-paper-scissors.
func Builtin() *Registry {
	reg, err := NewRegistry(ConnectFour(), TicTacToe(), RockPaperScissors())
	if err != nil {
		panic(err)
	}
	return reg
}

func (reg *Registry) Register(r Rules) error {
	if err := r.validate(); err != nil {
		return err
	}
	if _, dup := reg.byID[r.ID]; dup {
		return fmt.Errorf("game: duplicate id %q", r.ID)
	}
	if owner, dup := reg.byPrefix[r.Prefix]; dup {
		return fmt.Errorf("game: prefix %q already used by %q", r.Prefix, owner)
	}
	if r.StartSeat == NoSeat {
		r.StartSeat = Seat1
	}
	reg.byID[r.ID] = r
	reg.byPrefix[r.Prefix] = r.ID
	return nil
}

func (reg *Registry) Lookup(id string) (Rules, error) {
	r, ok := reg.byID[id]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %q", ErrUnknownGame, id)
	}
	return r, nil
}

func (reg *Registry) IDs() []string {
	ids := make([]string, 0, len(reg.byID))
	for id := range reg.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
