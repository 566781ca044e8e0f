package bus

import "sync"

// Loopback is an in-process room: every endpoint's Emit is queued for every
// endpoint, the sender included, mirroring a relay that echoes. Nothing is
// delivered until Flush or Step is called, which keeps multi-peer runs
// deterministic.
type Loopback struct {
	mu        sync.Mutex
	endpoints []*Endpoint
}

type frame struct {
	event string
	data  []byte
}

func NewLoopback() *Loopback { return &Loopback{} }

// Endpoint is one peer's connection to a Loopback.
type Endpoint struct {
	lb    *Loopback
	subs  subscriptions
	inbox []frame
	// Sent records every event emitted by this endpoint.
	Sent []string
}

func (lb *Loopback) Connect() *Endpoint {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	ep := &Endpoint{lb: lb}
	lb.endpoints = append(lb.endpoints, ep)
	return ep
}

// Disconnect stops delivery to ep.
func (lb *Loopback) Disconnect(ep *Endpoint) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	for i, e := range lb.endpoints {
		if e == ep {
			lb.endpoints = append(lb.endpoints[:i], lb.endpoints[i+1:]...)
			return
		}
	}
}

func (ep *Endpoint) Emit(event string, payload any) error {
	data, err := marshal(payload)
	if err != nil {
		return err
	}
	ep.lb.mu.Lock()
	defer ep.lb.mu.Unlock()
	ep.Sent = append(ep.Sent, event)
	for _, e := range ep.lb.endpoints {
		e.inbox = append(e.inbox, frame{event: event, data: append([]byte(nil), data...)})
	}
	return nil
}

func (ep *Endpoint) On(event string, h Handler) func() {
	ep.lb.mu.Lock()
	defer ep.lb.mu.Unlock()
	_, off := ep.subs.add(event, h)
	return func() {
		ep.lb.mu.Lock()
		defer ep.lb.mu.Unlock()
		off()
	}
}

// Deliver queues an event for ep alone, as a relay does for game:restore.
func (lb *Loopback) Deliver(ep *Endpoint, event string, payload any) error {
	data, err := marshal(payload)
	if err != nil {
		return err
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()
	ep.inbox = append(ep.inbox, frame{event: event, data: data})
	return nil
}

// Pending is the number of frames queued for ep.
func (ep *Endpoint) Pending() int {
	ep.lb.mu.Lock()
	defer ep.lb.mu.Unlock()
	return len(ep.inbox)
}

// Step delivers the oldest queued frame of ep and reports whether there was
// one.
func (ep *Endpoint) Step() bool {
	ep.lb.mu.Lock()
	if len(ep.inbox) == 0 {
		ep.lb.mu.Unlock()
		return false
	}
	f := ep.inbox[0]
	ep.inbox = ep.inbox[1:]
	subs := ep.subs.list(f.event)
	ep.lb.mu.Unlock()

	for _, s := range subs {
		ep.lb.mu.Lock()
		active := s.active
		ep.lb.mu.Unlock()
		if active {
			s.h(f.data)
		}
	}
	return true
}

// Flush delivers round-robin across endpoints until every inbox is empty,
// including frames emitted by handlers along the way.
func (lb *Loopback) Flush() {
	for {
		lb.mu.Lock()
		eps := append([]*Endpoint(nil), lb.endpoints...)
		lb.mu.Unlock()

		progressed := false
		for _, ep := range eps {
			if ep.Step() {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}
