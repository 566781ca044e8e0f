// Package synchronizer keeps one peer's copy of a game in step with the room.
//
// Every state change travels as an envelope on the bus and is applied when it
// comes back from the relay, so the sender and everyone else run the same
// deterministic machine over the same sequence. Divergence is repaired only
// by STATE_SYNC, which overwrites seats and state wholesale.
package synchronizer

import (
	"encoding/json"
	"errors"

	"github.com/wfunc/roomsync/authority"
	"github.com/wfunc/roomsync/envelope"
	"github.com/wfunc/roomsync/game"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/peer"
)

// ErrDetached is returned for local actions on a torn-down instance.
var ErrDetached = errors.New("synchronizer: detached")

type Renderer interface {
	Render(View)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(View)

func (f RenderFunc) Render(v View) { f(v) }

type Synchronizer struct {
	ctx     *peer.Context
	rules   game.Rules
	machine *game.Machine
	render  Renderer

	// away holds display-only ghost flags of seated participants.
	away   map[string]bool
	ghosts func(participantID string) bool

	off       func()
	stopReset func()
	detached  bool
}

func New(ctx *peer.Context, rules game.Rules, r Renderer) *Synchronizer {
	return &Synchronizer{
		ctx:     ctx,
		rules:   rules,
		machine: game.NewMachine(rules),
		render:  r,
		away:    make(map[string]bool),
	}
}

// UseGhosts installs a lookup for flags known before a participant took a
// seat. It is consulted whenever seats change.
func (s *Synchronizer) UseGhosts(lookup func(participantID string) bool) {
	s.ghosts = lookup
	s.seedAway()
}

func (s *Synchronizer) Rules() game.Rules { return s.rules }

func (s *Synchronizer) Snapshot() game.Snapshot { return s.machine.Snapshot() }

// Attach subscribes to game:action. It is a no-op when already attached or
// after Detach.
func (s *Synchronizer) Attach() {
	if s.off != nil || s.detached {
		return
	}
	s.off = s.ctx.Bus.On(envelope.EventAction, s.handle)
}

// Detach removes the subscription and cancels a pending reset. Nothing is
// applied after Detach returns.
func (s *Synchronizer) Detach() {
	s.detached = true
	if s.off != nil {
		s.off()
		s.off = nil
	}
	s.cancelReset()
}

func (s *Synchronizer) handle(data []byte) {
	env, err := envelope.Decode(data)
	if err != nil {
		logger.Log.Debugw("dropping undecodable envelope", "err", err)
		return
	}
	s.OnRemoteAction(env)
}

// OnLocalAction tags payload with the local identity and broadcasts it. The
// local copy changes only when the relay echoes the envelope back.
func (s *Synchronizer) OnLocalAction(action envelope.Action, payload any) error {
	if s.detached {
		return ErrDetached
	}
	self := s.ctx.Self
	env, err := envelope.New(s.ctx.RoomID, self.ID, self.Name, self.Color, s.rules.Prefix, action, payload)
	if err != nil {
		return err
	}
	return s.ctx.Bus.Emit(envelope.EventAction, env)
}

// OnRemoteAction applies one inbound envelope. Illegal, foreign or malformed
// envelopes are dropped without a reply.
func (s *Synchronizer) OnRemoteAction(env envelope.Envelope) {
	if s.detached {
		return
	}
	if env.RoomID != s.ctx.RoomID || env.Namespace() != s.rules.Prefix {
		return
	}

	var err error
	switch env.Action() {
	case envelope.ActSit:
		err = s.onSit(env)
	case envelope.ActMove:
		err = s.onMove(env)
	case envelope.ActReset:
		s.onReset()
	case envelope.ActStateRequest:
		err = s.onStateRequest()
	case envelope.ActStateSync:
		err = s.onStateSync(env)
	case envelope.ActLeave:
		s.onLeave(env)
	}
	if err != nil {
		logger.Log.Debugw("dropping envelope", "kind", env.Kind, "actor", env.ActorID, "err", err)
	}
}

func actor(env envelope.Envelope) game.Participant {
	return game.Participant{ID: env.ActorID, Name: env.ActorName, Color: env.ActorColor}
}

func (s *Synchronizer) onSit(env envelope.Envelope) error {
	var p envelope.Sit
	if err := env.DecodePayload(&p); err != nil {
		return err
	}
	if err := s.machine.Sit(game.SeatIndex(p.Seat), actor(env)); err != nil {
		return err
	}
	s.seedAway()
	s.refresh()
	if s.isAuthority() {
		s.persist()
	}
	return nil
}

func (s *Synchronizer) onMove(env envelope.Envelope) error {
	var p envelope.Move
	if err := env.DecodePayload(&p); err != nil {
		return err
	}
	if err := s.machine.Move(env.ActorID, game.Move{Seat: game.SeatIndex(p.Seat), Target: p.Target}); err != nil {
		return err
	}
	s.refresh()
	if s.isAuthority() {
		s.persist()
		s.scheduleResetIfTerminal()
	}
	return nil
}

func (s *Synchronizer) onReset() {
	s.cancelReset()
	s.machine.Reset()
	s.refresh()
	if s.isAuthority() {
		s.persist()
	}
}

func (s *Synchronizer) onStateRequest() error {
	if !s.isAuthority() {
		return nil
	}
	return s.OnLocalAction(envelope.ActStateSync, s.machine.Snapshot())
}

func (s *Synchronizer) onStateSync(env envelope.Envelope) error {
	var snap game.Snapshot
	if err := env.DecodePayload(&snap); err != nil {
		return err
	}
	return s.Restore(snap)
}

func (s *Synchronizer) onLeave(env envelope.Envelope) {
	if !s.machine.Leave(env.ActorID) {
		return
	}
	delete(s.away, env.ActorID)
	s.refresh()
	if s.isAuthority() {
		s.persist()
	}
}

// Restore overwrites seats and state with snap, as on STATE_SYNC or an
// externally supplied restore.
func (s *Synchronizer) Restore(snap game.Snapshot) error {
	if s.detached {
		return ErrDetached
	}
	if err := s.machine.Restore(snap); err != nil {
		return err
	}
	s.pruneAway()
	s.seedAway()
	s.refresh()
	if s.isAuthority() {
		s.scheduleResetIfTerminal()
	}
	return nil
}

// RequestState asks the authority, whoever it is, for a STATE_SYNC. There is
// no timeout or retry; without an authority the request goes unanswered.
func (s *Synchronizer) RequestState() error {
	return s.OnLocalAction(envelope.ActStateRequest, nil)
}

func (s *Synchronizer) isAuthority() bool {
	return authority.Is(s.machine.Seats(), s.ctx.Self.ID)
}

// IsAuthority reports whether the local participant holds seat 1.
func (s *Synchronizer) IsAuthority() bool { return s.isAuthority() }

func (s *Synchronizer) persist() {
	full := game.FullState{
		ActiveGameID: s.rules.ID,
		Seats:        s.machine.Seats(),
		State:        s.machine.State(),
	}
	raw, err := json.Marshal(full)
	if err != nil {
		logger.Log.Errorw("snapshot marshal failed", "game", s.rules.ID, "err", err)
		return
	}
	msg := envelope.Persist{RoomID: s.ctx.RoomID, FullState: raw}
	if err := s.ctx.Bus.Emit(envelope.EventPersist, msg); err != nil {
		logger.Log.Warnw("snapshot persist failed", "room", s.ctx.RoomID, "err", err)
	}
}

// scheduleResetIfTerminal arms the authority's delayed RESET once per
// terminal state.
func (s *Synchronizer) scheduleResetIfTerminal() {
	if s.stopReset != nil || s.ctx.Scheduler == nil || !s.machine.State().Terminal {
		return
	}
	s.stopReset = s.ctx.Scheduler.AfterFunc(s.rules.ResetDelay, func() {
		s.stopReset = nil
		if s.detached || !s.isAuthority() || !s.machine.State().Terminal {
			return
		}
		if err := s.OnLocalAction(envelope.ActReset, nil); err != nil {
			logger.Log.Warnw("reset broadcast failed", "game", s.rules.ID, "err", err)
		}
	})
}

func (s *Synchronizer) cancelReset() {
	if s.stopReset != nil {
		s.stopReset()
		s.stopReset = nil
	}
}

// SetGhost flags a seated participant as away. It reports false, and changes
// nothing, when participantID holds no seat.
func (s *Synchronizer) SetGhost(participantID string, isGhost bool) bool {
	if s.detached || s.machine.SeatOf(participantID) == game.NoSeat {
		return false
	}
	if isGhost {
		s.away[participantID] = true
	} else {
		delete(s.away, participantID)
	}
	s.refresh()
	return true
}

func (s *Synchronizer) pruneAway() {
	for id := range s.away {
		if s.machine.SeatOf(id) == game.NoSeat {
			delete(s.away, id)
		}
	}
}

func (s *Synchronizer) seedAway() {
	if s.ghosts == nil {
		return
	}
	for _, p := range s.machine.Seats() {
		if p != nil && s.ghosts(p.ID) {
			s.away[p.ID] = true
		}
	}
}

func (s *Synchronizer) refresh() {
	if s.render != nil {
		s.render.Render(s.View())
	}
}
