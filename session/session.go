// session/session.go
package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wfunc/roomsync/network"
)

// Identity is who a connection claims to be after room:join.
type Identity struct {
	UserID    string
	UserName  string
	UserColor string
}

type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	mutex      sync.RWMutex
	identity   Identity
	roomID     string
	lastActive time.Time
	ghost      bool
	limiter    *rate.Limiter
}

// NewSession creates a session whose game:action frames are limited to limit
// per second with the given burst. A zero limit means unlimited.
func NewSession(id string, conn network.Connection, limit float64, burst int) *Session {
	now := time.Now()
	l := rate.NewLimiter(rate.Inf, 0)
	if limit > 0 {
		l = rate.NewLimiter(rate.Limit(limit), burst)
	}
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		limiter:    l,
	}
}

func (s *Session) Send(event string, data []byte) error {
	return s.Conn.Send(event, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Bind records the room and identity given in room:join.
func (s *Session) Bind(roomID string, id Identity) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = roomID
	s.identity = id
}

func (s *Session) Unbind() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = ""
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) Identity() Identity {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.identity
}

// Touch records activity at now. It reports true when this clears a ghost
// flag.
func (s *Session) Touch(now time.Time) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = now
	if s.ghost {
		s.ghost = false
		return true
	}
	return false
}

// MarkGhostIfSilent flags the session when it has been silent for longer
// than after. It reports true only on the transition.
func (s *Session) MarkGhostIfSilent(now time.Time, after time.Duration) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.ghost || now.Sub(s.lastActive) <= after {
		return false
	}
	s.ghost = true
	return true
}

func (s *Session) IsGhost() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ghost
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// AllowAction reports whether one more game:action may be relayed now.
func (s *Session) AllowAction() bool {
	return s.limiter.Allow()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.Identity().UserID == userID {
			result = append(result, session)
		}
	}
	return result
}

// All returns every live session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	result := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
