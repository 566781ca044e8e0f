// Package bus is the message-bus client the game core talks to: named events
// with JSON payloads, emitted to and received from the room.
package bus

import (
	"encoding/json"
	"sort"
)

// Handler receives the raw JSON payload of one event.
type Handler func(data []byte)

// Bus emits named events and subscribes to them. The returned function
// removes the subscription; after it returns the handler is never invoked
// again, including for events already received but not yet dispatched.
type Bus interface {
	Emit(event string, payload any) error
	On(event string, h Handler) (off func())
}

// marshal passes raw JSON through untouched.
func marshal(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}

// subscriptions is the handler table shared by the bus implementations.
type subscriptions struct {
	next     int
	handlers map[string]map[int]*subscription
}

type subscription struct {
	h      Handler
	active bool
}

func (s *subscriptions) add(event string, h Handler) (*subscription, func()) {
	if s.handlers == nil {
		s.handlers = make(map[string]map[int]*subscription)
	}
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[int]*subscription)
	}
	id := s.next
	s.next++
	sub := &subscription{h: h, active: true}
	s.handlers[event][id] = sub
	return sub, func() {
		sub.active = false
		delete(s.handlers[event], id)
	}
}

// list returns the live subscriptions for event in subscription order.
func (s *subscriptions) list(event string) []*subscription {
	subs := s.handlers[event]
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*subscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, subs[id])
	}
	return out
}
