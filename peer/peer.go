// Package peer holds what one participant's game core needs for one room:
// identity, the bus, a scheduler and the host UI's resize hook. It is passed
// explicitly to every component instead of living in a global.
package peer

import (
	"time"

	"github.com/wfunc/roomsync/bus"
	"github.com/wfunc/roomsync/game"
)

// Scheduler runs fn once after d on the peer's event loop. stop prevents a
// pending fn from running.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func())
}

// Context is the per-room session context of one peer.
type Context struct {
	RoomID    string
	Self      game.Participant
	Bus       bus.Bus
	Scheduler Scheduler
	// Resize asks the hosting panel to fit size. Optional.
	Resize func(game.Size)
}

func (c *Context) RequestResize(s game.Size) {
	if c.Resize != nil {
		c.Resize(s)
	}
}
