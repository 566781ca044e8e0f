// Package presence turns user:ghost events into away flags on the active
// game's seats.
package presence

import (
	"encoding/json"
	"sync"

	"github.com/wfunc/roomsync/bus"
	"github.com/wfunc/roomsync/envelope"
	"github.com/wfunc/roomsync/logger"
)

// Target is the game instance that receives away flags.
type Target interface {
	SetGhost(participantID string, isGhost bool) bool
}

// Monitor remembers the last ghost flag of every user it has heard about, so
// an instance that becomes active later starts with the right flags.
type Monitor struct {
	mu     sync.Mutex
	ghosts map[string]bool
	target Target
	off    func()
}

func New() *Monitor {
	return &Monitor{ghosts: make(map[string]bool)}
}

// Subscribe listens for user:ghost on b until Close.
func (m *Monitor) Subscribe(b bus.Bus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.off != nil {
		m.off()
	}
	m.off = b.On(envelope.EventGhost, m.handle)
}

func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.off != nil {
		m.off()
		m.off = nil
	}
}

func (m *Monitor) handle(data []byte) {
	var g envelope.Ghost
	if err := json.Unmarshal(data, &g); err != nil || g.UserID == "" {
		logger.Log.Debugw("dropping ghost event", "err", err)
		return
	}
	m.SetGhost(g.UserID, g.IsGhost)
}

// SetGhost records the flag and forwards it to the active instance, if any.
// It reports whether a seat was flagged.
func (m *Monitor) SetGhost(participantID string, isGhost bool) bool {
	m.mu.Lock()
	if isGhost {
		m.ghosts[participantID] = true
	} else {
		delete(m.ghosts, participantID)
	}
	t := m.target
	m.mu.Unlock()

	if t == nil {
		return false
	}
	return t.SetGhost(participantID, isGhost)
}

// SetTarget makes t the active instance, or clears it when t is nil, and
// replays the known flags onto it.
func (m *Monitor) SetTarget(t Target) {
	m.mu.Lock()
	m.target = t
	m.mu.Unlock()
	m.Reapply()
}

// Reapply pushes every remembered ghost flag to the active instance.
func (m *Monitor) Reapply() {
	m.mu.Lock()
	t := m.target
	ids := make([]string, 0, len(m.ghosts))
	for id := range m.ghosts {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	if t == nil {
		return
	}
	for _, id := range ids {
		t.SetGhost(id, true)
	}
}

// IsGhost reports the last known flag for participantID.
func (m *Monitor) IsGhost(participantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ghosts[participantID]
}
