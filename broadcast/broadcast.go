// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/room"
	"github.com/wfunc/roomsync/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, event string, data []byte) error
	BroadcastToAll(event string, data []byte) error
	BroadcastToUsers(userIDs []string, event string, data []byte) error
}

// SendObserver is told about every frame a broadcaster tries to deliver.
type SendObserver func(event string, err error)

// 基于房间的广播器
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
	observe        SendObserver
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

// Observe installs fn to be called after every send.
func (b *RoomBroadcaster) Observe(fn SendObserver) {
	b.observe = fn
}

func (b *RoomBroadcaster) send(s *session.Session, event string, data []byte) {
	err := s.Send(event, data)
	if err != nil {
		// 发送失败的连接会在读循环中被清理
		logger.Log.Debugf("send %s to session %s failed: %v", event, s.GetID(), err)
	}
	if b.observe != nil {
		b.observe(event, err)
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, event string, data []byte) error {
	room, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	// Get a thread-safe copy of the sessions
	for _, s := range room.GetSessions() {
		b.send(s, event, data)
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToAll(event string, data []byte) error {
	for _, s := range b.sessionManager.All() {
		b.send(s, event, data)
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToUsers(userIDs []string, event string, data []byte) error {
	for _, userID := range userIDs {
		for _, s := range b.sessionManager.GetByUserID(userID) {
			b.send(s, event, data)
		}
	}
	return nil
}
