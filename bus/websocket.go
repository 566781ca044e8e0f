package bus

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/network"
)

// Dispatcher runs handler invocations. Peers pass their event loop's Post so
// that handlers never run concurrently with other core work.
type Dispatcher func(func())

// WSClient is a Bus over a websocket connection to the relay server.
type WSClient struct {
	conn     network.Connection
	dispatch Dispatcher

	mu   sync.Mutex
	subs subscriptions

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to url. A nil dispatch invokes handlers on the read
// goroutine.
func Dial(ctx context.Context, url string, dispatch Dispatcher) (*WSClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWSClient(network.NewWSConnection(conn), dispatch), nil
}

func NewWSClient(conn network.Connection, dispatch Dispatcher) *WSClient {
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &WSClient{
		conn:     conn,
		dispatch: dispatch,
		done:     make(chan struct{}),
	}
}

func (c *WSClient) Emit(event string, payload any) error {
	data, err := marshal(payload)
	if err != nil {
		return err
	}
	return c.conn.Send(event, data)
}

func (c *WSClient) On(event string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, off := c.subs.add(event, h)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		off()
	}
}

// Run reads packets until the connection fails, ctx ends or Close is called.
func (c *WSClient) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	for {
		packet, err := c.conn.ReadPacket()
		if err != nil {
			select {
			case <-c.done:
				return ctx.Err()
			default:
				return err
			}
		}
		c.deliver(packet)
	}
}

func (c *WSClient) deliver(p *network.Packet) {
	c.mu.Lock()
	subs := c.subs.list(p.Event)
	c.mu.Unlock()
	if len(subs) == 0 {
		logger.Log.Debugf("bus: no handler for %s", p.Event)
		return
	}

	data := append([]byte(nil), p.Data...)
	for _, s := range subs {
		s := s
		c.dispatch(func() {
			c.mu.Lock()
			active := s.active
			c.mu.Unlock()
			if active {
				s.h(data)
			}
		})
	}
}

// Heartbeat emits a heartbeat every interval until ctx ends.
func (c *WSClient) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.Send(network.EventHeartbeat, nil); err != nil {
				logger.Log.Warnf("bus: heartbeat failed: %v", err)
				return
			}
		}
	}
}

func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}
