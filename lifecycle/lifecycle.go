// Package lifecycle owns the single active game of one peer in one room: the
// menu, game selection, restore on re-entry and teardown.
package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/roomsync/envelope"
	"github.com/wfunc/roomsync/game"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/peer"
	"github.com/wfunc/roomsync/presence"
	"github.com/wfunc/roomsync/state"
	"github.com/wfunc/roomsync/synchronizer"
)

var ErrClosed = errors.New("lifecycle: manager closed")

type Config struct {
	Context  *peer.Context
	Registry *game.Registry
	// Presence, when set, feeds away flags to whichever game is active.
	Presence *presence.Monitor
	Renderer synchronizer.Renderer
	// OnMenu is called whenever the panel returns to the game selector.
	OnMenu func()
}

type Manager struct {
	cfg     Config
	sm      *state.BaseStateMachine
	menu    *state.MenuState
	active  *synchronizer.Synchronizer
	visible bool
	closed  bool
	off     func()
}

// New starts in the menu, visible, and listens for game:restore.
func New(cfg Config) *Manager {
	if cfg.Registry == nil {
		cfg.Registry = game.Builtin()
	}
	m := &Manager{cfg: cfg, visible: true}
	m.menu = state.NewMenuState(m)
	m.sm = state.NewBaseStateMachine(m.menu)

	open := func() bool { return !m.closed }
	playing := state.NewPlayingState(m, nil, false)
	m.sm.AddTransition(m.menu, playing, open)
	m.sm.AddTransition(playing, playing, open)

	m.off = cfg.Context.Bus.On(envelope.EventRestore, m.handleRestore)
	return m
}

// RequestResize forwards to the host panel while it is shown.
func (m *Manager) RequestResize(size game.Size) {
	if m.visible {
		m.cfg.Context.RequestResize(size)
	}
}

// Active returns the running game, or nil in the menu.
func (m *Manager) Active() *synchronizer.Synchronizer { return m.active }

// SelectGame tears down any running game, starts typeID fresh and asks the
// authority for its state.
func (m *Manager) SelectGame(typeID string) error {
	rules, err := m.cfg.Registry.Lookup(typeID)
	if err != nil {
		return err
	}
	return m.enter(m.newGame(rules), false)
}

// Restore starts the game named by full and seeds it from the snapshot. No
// state request is sent, so a late STATE_SYNC cannot race the restore.
func (m *Manager) Restore(full game.FullState) error {
	if m.closed {
		return ErrClosed
	}
	rules, err := m.cfg.Registry.Lookup(full.ActiveGameID)
	if err != nil {
		return err
	}
	g := m.newGame(rules)
	if err := g.Restore(full.Snapshot()); err != nil {
		g.Detach()
		return fmt.Errorf("restore %s: %w", rules.ID, err)
	}
	if err := m.enter(g, true); err != nil {
		// a restored authority may already have a reset armed
		g.Detach()
		return err
	}
	return nil
}

// ExitToMenu tears down the running game and shows the selector.
func (m *Manager) ExitToMenu() {
	if m.active == nil {
		return
	}
	if err := m.sm.ChangeState(m.menu); err != nil {
		logger.Log.Warnf("exit to menu failed: %v", err)
		return
	}
	m.deactivate()
}

// Enable is called when a hidden panel is shown again. It repeats the
// current resize request without asking for state.
func (m *Manager) Enable() {
	m.visible = true
	if m.active != nil {
		m.RequestResize(m.active.Rules().Size)
		return
	}
	m.RequestResize(state.MenuSize)
}

// SetVisible records whether the hosting panel is shown.
func (m *Manager) SetVisible(v bool) {
	if v {
		m.Enable()
		return
	}
	m.visible = false
}

// Close tears everything down. The manager cannot be reused.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.ExitToMenu()
	m.closed = true
	if m.off != nil {
		m.off()
		m.off = nil
	}
}

func (m *Manager) newGame(rules game.Rules) *synchronizer.Synchronizer {
	g := synchronizer.New(m.cfg.Context, rules, m.cfg.Renderer)
	if m.cfg.Presence != nil {
		g.UseGhosts(m.cfg.Presence.IsGhost)
	}
	return g
}

func (m *Manager) enter(g *synchronizer.Synchronizer, restored bool) error {
	if m.closed {
		return ErrClosed
	}
	if err := m.sm.ChangeState(state.NewPlayingState(m, g, restored)); err != nil {
		if errors.Is(err, state.ErrTransitionNotAllowed) {
			return ErrClosed
		}
		return err
	}
	m.active = g
	if m.cfg.Presence != nil {
		m.cfg.Presence.SetTarget(g)
	}
	return nil
}

func (m *Manager) deactivate() {
	m.active = nil
	if m.cfg.Presence != nil {
		m.cfg.Presence.SetTarget(nil)
	}
	if m.cfg.OnMenu != nil {
		m.cfg.OnMenu()
	}
}

func (m *Manager) handleRestore(data []byte) {
	if !m.visible || m.active != nil {
		logger.Log.Debugw("ignoring game restore", "visible", m.visible, "active", m.active != nil)
		return
	}
	var full game.FullState
	if err := json.Unmarshal(data, &full); err != nil {
		logger.Log.Debugw("dropping malformed game restore", "err", err)
		return
	}
	if err := m.Restore(full); err != nil {
		logger.Log.Warnw("game restore failed", "game", full.ActiveGameID, "err", err)
	}
}
