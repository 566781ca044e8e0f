// Package envelope defines the messages peers exchange over the bus for game
// logic and the rules for validating them.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Bus event names.
const (
	EventAction  = "game:action"
	EventRestore = "game:restore"
	EventPersist = "game:persist_state"
	EventGhost   = "user:ghost"
)

// Action is the un-namespaced part of an envelope kind.
type Action string

const (
	ActSit          Action = "SIT"
	ActMove         Action = "MOVE"
	ActReset        Action = "RESET"
	ActStateRequest Action = "STATE_REQUEST"
	ActStateSync    Action = "STATE_SYNC"
	ActLeave        Action = "LEAVE"
)

var knownActions = map[Action]bool{
	ActSit:          true,
	ActMove:         true,
	ActReset:        true,
	ActStateRequest: true,
	ActStateSync:    true,
	ActLeave:        true,
}

func (a Action) Valid() bool { return knownActions[a] }

var (
	ErrMalformed     = errors.New("envelope: malformed")
	ErrUnknownAction = errors.New("envelope: unknown action")
)

// Envelope is the only unit of game information sent over the bus. Kind is
// namespaced as PREFIX_ACTION so handlers of one game never act on another's
// traffic. There is deliberately no sequence number.
type Envelope struct {
	RoomID     string          `json:"roomId"`
	ActorID    string          `json:"actorId"`
	ActorName  string          `json:"actorName"`
	ActorColor string          `json:"actorColor"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

// Qualify joins a game prefix and an action into a wire kind.
func Qualify(prefix string, action Action) string {
	return prefix + "_" + string(action)
}

// split finds the action suffix. Actions may themselves contain underscores
// (STATE_SYNC), so the longest known suffix wins.
func split(kind string) (prefix string, action Action, ok bool) {
	for a := range knownActions {
		suffix := "_" + string(a)
		if strings.HasSuffix(kind, suffix) && len(kind) > len(suffix) {
			p := strings.TrimSuffix(kind, suffix)
			if len(a) > len(action) {
				prefix, action, ok = p, a, true
			}
		}
	}
	return
}

// Namespace returns the game prefix of the kind, or "" when the kind is not
// namespaced.
func (e Envelope) Namespace() string {
	p, _, _ := split(e.Kind)
	return p
}

// Action returns the action part of the kind, or "" when unknown.
func (e Envelope) Action() Action {
	_, a, _ := split(e.Kind)
	return a
}

// New builds an envelope, marshalling payload. A nil payload becomes {}.
func New(roomID, actorID, actorName, actorColor, prefix string, action Action, payload any) (Envelope, error) {
	raw := json.RawMessage(`{}`)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
		}
		raw = b
	}
	env := Envelope{
		RoomID:     roomID,
		ActorID:    actorID,
		ActorName:  actorName,
		ActorColor: actorColor,
		Kind:       Qualify(prefix, action),
		Payload:    raw,
	}
	return env, env.Validate()
}

func (e Envelope) Validate() error {
	if e.RoomID == "" {
		return fmt.Errorf("%w: missing roomId", ErrMalformed)
	}
	if e.ActorID == "" {
		return fmt.Errorf("%w: missing actorId", ErrMalformed)
	}
	if _, _, ok := split(e.Kind); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, e.Kind)
	}
	if len(bytes.TrimSpace(e.Payload)) == 0 || !json.Valid(e.Payload) {
		return fmt.Errorf("%w: payload is not JSON", ErrMalformed)
	}
	return nil
}

func Encode(e Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, e.Kind, err)
	}
	return nil
}
