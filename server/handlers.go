package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/roomsync/envelope"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/monitor"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/session"
)

const storageTimeout = 5 * time.Second

var knownEvents = map[string]bool{
	network.EventHeartbeat: true,
	network.EventJoinRoom:  true,
	network.EventLeaveRoom: true,
	envelope.EventAction:   true,
	envelope.EventPersist:  true,
}

func (s *RelayServer) handlePacket(sess *session.Session, packet *network.Packet) {
	if !knownEvents[packet.Event] {
		s.monitor.IncDropped(monitor.DropUnknown)
		logger.Log.Debugf("Unknown event %q from session %s", packet.Event, sess.GetID())
		return
	}
	s.monitor.IncMessagesReceived(packet.Event)
	s.touch(sess)

	switch packet.Event {
	case network.EventHeartbeat:
	case network.EventJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.EventLeaveRoom:
		s.leaveRoom(sess)
	case envelope.EventAction:
		s.handleGameAction(sess, packet)
	case envelope.EventPersist:
		s.handlePersist(sess, packet)
	}
}

// touch refreshes activity and clears a ghost flag, telling the room when
// one was set.
func (s *RelayServer) touch(sess *session.Session) {
	now := time.Now()
	if r, ok := s.roomManager.GetRoom(sess.RoomID()); ok {
		r.MarkActive(sess, now)
		return
	}
	sess.Touch(now)
}

func (s *RelayServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req network.JoinRoom
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.RoomID == "" {
		s.monitor.IncDropped(monitor.DropMalformed)
		return
	}
	if current := sess.RoomID(); current != "" {
		if current == req.RoomID {
			return
		}
		s.leaveRoom(sess)
	}

	id := session.Identity{UserID: req.UserID, UserName: req.UserName, UserColor: req.UserColor}
	if id.UserID == "" {
		id.UserID = sess.GetID()
	}
	sess.Bind(req.RoomID, id)
	r := s.roomManager.Join(req.RoomID, sess)
	r.Returned(id.UserID)
	s.monitor.SetActiveRooms(s.roomManager.Count())
	logger.Log.Infof("Session %s (%s) joined room %s", sess.GetID(), id.UserID, req.RoomID)

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	snap, err := s.snapshots.Load(ctx, req.RoomID)
	if err != nil {
		return
	}
	if err := sess.Send(envelope.EventRestore, snap.FullState); err != nil {
		logger.Log.Warnf("Send restore to session %s: %v", sess.GetID(), err)
	}
}

func (s *RelayServer) leaveRoom(sess *session.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		return
	}
	s.roomManager.Leave(roomID, sess.GetID())
	if r, ok := s.roomManager.GetRoom(roomID); ok {
		r.Departed(sess.Identity().UserID)
	} else {
		// The snapshot stays in storage for the next visitor.
		s.snapshots.Evict(roomID)
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
	logger.Log.Infof("Session %s left room %s", sess.GetID(), roomID)
}

func (s *RelayServer) handleGameAction(sess *session.Session, packet *network.Packet) {
	roomID := sess.RoomID()
	if roomID == "" {
		s.monitor.IncDropped(monitor.DropNotInRoom)
		logger.Log.Warnf("Session %s sent game action but is not in a room", sess.GetID())
		return
	}
	env, err := envelope.Decode(packet.Data)
	if err != nil {
		s.monitor.IncDropped(monitor.DropMalformed)
		logger.Log.Debugf("Malformed action from session %s: %v", sess.GetID(), err)
		return
	}
	if env.RoomID != roomID {
		s.monitor.IncDropped(monitor.DropWrongRoom)
		return
	}
	if !sess.AllowAction() {
		s.monitor.IncDropped(monitor.DropRateLimited)
		return
	}

	// Relayed verbatim to the whole room, sender included.
	if err := s.broadcaster.BroadcastToRoom(roomID, envelope.EventAction, packet.Data); err != nil {
		logger.Log.Errorf("Relay action in room %s: %v", roomID, err)
	}
}

func (s *RelayServer) handlePersist(sess *session.Session, packet *network.Packet) {
	roomID := sess.RoomID()
	if roomID == "" {
		s.monitor.IncDropped(monitor.DropNotInRoom)
		return
	}
	var p envelope.Persist
	if err := json.Unmarshal(packet.Data, &p); err != nil || p.Validate() != nil {
		s.monitor.IncDropped(monitor.DropMalformed)
		return
	}
	if p.RoomID != roomID {
		s.monitor.IncDropped(monitor.DropWrongRoom)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := s.snapshots.Save(ctx, roomID, p.FullState); err != nil {
		logger.Log.Warnf("Persist snapshot for room %s: %v", roomID, err)
		return
	}
	s.monitor.IncSnapshotsSaved()
}
