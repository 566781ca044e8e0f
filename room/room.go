// room/room.go
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/roomsync/envelope"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/session"
)

// Options control the room's presence sweep.
type Options struct {
	// GhostAfter is how long a session may stay silent before it is
	// reported as ghost.
	GhostAfter time.Duration
	// SweepEvery is the sweep interval. Zero disables the background loop;
	// Sweep can still be called directly.
	SweepEvery time.Duration
}

// Room 是一组共享 game:action 的会话。房间本身不运行游戏规则。
type Room struct {
	ID          string
	Players     map[string]*session.Session // sessionID -> session
	CreatedAt   time.Time
	broadcaster Broadcaster // Use the interface, not the concrete type
	opts        Options
	playerMutex sync.RWMutex
	departed    map[string]bool // userID -> left without a session remaining
	ticker      *time.Ticker
	closeChan   chan struct{}
	closeOnce   sync.Once
}

// NewRoom 创建一个新房间
func NewRoom(id string, broadcaster Broadcaster, opts Options) *Room {
	room := &Room{
		ID:          id,
		Players:     make(map[string]*session.Session),
		departed:    make(map[string]bool),
		CreatedAt:   time.Now(),
		closeChan:   make(chan struct{}),
		broadcaster: broadcaster,
		opts:        opts,
	}

	if opts.SweepEvery > 0 && opts.GhostAfter > 0 {
		room.ticker = time.NewTicker(opts.SweepEvery)
		go room.loop()
	}

	return room
}

// GetID 返回房间ID
func (r *Room) GetID() string {
	return r.ID
}

// Broadcast sends a message to all players in the room.
func (r *Room) Broadcast(event string, data []byte) error {
	return r.broadcaster.BroadcastToRoom(r.ID, event, data)
}

// AddPlayer 添加一个玩家到房间. It reports false if the session was already
// there.
func (r *Room) AddPlayer(s *session.Session) bool {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if _, exists := r.Players[s.ID]; exists {
		return false
	}
	r.Players[s.ID] = s
	return true
}

// RemovePlayer 从房间移除一个玩家, reporting whether the room is now empty.
func (r *Room) RemovePlayer(sessionID string) bool {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if player, exists := r.Players[sessionID]; exists {
		player.Unbind()
		delete(r.Players, sessionID)
	}
	return len(r.Players) == 0
}

// GetPlayer 获取单个玩家
func (r *Room) GetPlayer(sessionID string) (*session.Session, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	player, exists := r.Players[sessionID]
	return player, exists
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.Players))
	for _, s := range r.Players {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) Len() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.Players)
}

// MarkActive records activity for s and announces the end of a ghost period.
func (r *Room) MarkActive(s *session.Session, now time.Time) {
	if s.Touch(now) {
		r.announceGhost(s.Identity().UserID, false)
	}
}

// Departed reports userID as ghost after its session left the room, unless
// another session of the same user is still there. It must be called
// without the manager lock held.
func (r *Room) Departed(userID string) bool {
	if userID == "" {
		return false
	}
	r.playerMutex.Lock()
	for _, s := range r.Players {
		if s.Identity().UserID == userID {
			r.playerMutex.Unlock()
			return false
		}
	}
	r.departed[userID] = true
	r.playerMutex.Unlock()

	r.announceGhost(userID, true)
	return true
}

// Returned clears the ghost flag Departed set for userID. It reports whether
// there was one.
func (r *Room) Returned(userID string) bool {
	r.playerMutex.Lock()
	was := r.departed[userID]
	delete(r.departed, userID)
	r.playerMutex.Unlock()

	if was {
		r.announceGhost(userID, false)
	}
	return was
}

// Sweep announces every session that went silent since the last sweep. It
// returns how many were flagged.
func (r *Room) Sweep(now time.Time) int {
	n := 0
	for _, s := range r.GetSessions() {
		if s.MarkGhostIfSilent(now, r.opts.GhostAfter) {
			r.announceGhost(s.Identity().UserID, true)
			n++
		}
	}
	return n
}

func (r *Room) announceGhost(userID string, ghost bool) {
	if userID == "" {
		return
	}
	data, err := json.Marshal(envelope.Ghost{UserID: userID, IsGhost: ghost})
	if err != nil {
		logger.Log.Errorf("marshal ghost event: %v", err)
		return
	}
	if err := r.Broadcast(envelope.EventGhost, data); err != nil {
		logger.Log.Warnf("broadcast ghost for %s in room %s: %v", userID, r.ID, err)
	}
}

// loop 是房间的主循环，定时检查静默会话
func (r *Room) loop() {
	for {
		select {
		case now := <-r.ticker.C:
			r.Sweep(now)
		case <-r.closeChan:
			r.ticker.Stop()
			return
		}
	}
}

// Close 关闭房间，停止主循环
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.closeChan) })
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms       map[string]*Room
	broadcaster Broadcaster
	opts        Options
	mutex       sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(broadcaster Broadcaster, opts Options) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		broadcaster: broadcaster,
		opts:        opts,
	}
}

// SetBroadcaster replaces the broadcaster used for rooms created from now on.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.broadcaster = b
}

// GetOrCreateRoom returns the room with id, creating it on first use.
func (m *Manager) GetOrCreateRoom(id string) (*Room, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		return room, false
	}
	room := NewRoom(id, m.broadcaster, m.opts)
	m.rooms[id] = room
	return room, true
}

// Join adds s to room id, creating the room when needed. Holding the manager
// lock keeps a concurrent Leave from dropping the room in between.
func (m *Manager) Join(id string, s *session.Session) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[id]
	if !exists {
		room = NewRoom(id, m.broadcaster, m.opts)
		m.rooms[id] = room
	}
	room.AddPlayer(s)
	return room
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.Close()
		delete(m.rooms, id)
	}
}

// Leave removes sessionID from room id and drops the room once empty.
func (m *Manager) Leave(id, sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[id]
	if !exists {
		return
	}
	if room.RemovePlayer(sessionID) {
		room.Close()
		delete(m.rooms, id)
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CloseAll stops every room loop.
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for id, room := range m.rooms {
		room.Close()
		delete(m.rooms, id)
	}
}
