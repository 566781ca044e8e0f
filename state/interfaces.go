// state/interfaces.go
package state

import "github.com/wfunc/roomsync/game"

// Game is the per-room game instance a playing state drives.
type Game interface {
	Rules() game.Rules
	Attach()
	Detach()
	Leave() error
	RequestState() error
}

// Panel defines what the hosting panel must provide to the states.
// This breaks the import cycle between lifecycle and state.
type Panel interface {
	RequestResize(size game.Size)
}
