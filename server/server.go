package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/roomsync/broadcast"
	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/monitor"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/room"
	"github.com/wfunc/roomsync/services"
	"github.com/wfunc/roomsync/session"
)

// Options tune the relay's per-session behaviour.
type Options struct {
	GhostAfter  time.Duration
	SweepEvery  time.Duration
	IdleTimeout time.Duration
	ActionRate  float64
	ActionBurst int
}

func OptionsFrom(cfg config.ServerConfig) Options {
	return Options{
		GhostAfter:  cfg.GhostAfter,
		SweepEvery:  cfg.SweepEvery,
		IdleTimeout: cfg.IdleTimeout,
		ActionRate:  cfg.ActionRate,
		ActionBurst: cfg.ActionBurst,
	}
}

// RelayServer forwards game traffic between the sessions of a room and keeps
// each room's latest snapshot. It never runs game rules.
type RelayServer struct {
	addr           string
	opts           Options
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    *broadcast.RoomBroadcaster
	snapshots      *services.SnapshotService
	monitor        *monitor.Monitor
	router         *chi.Mux
	httpServer     *http.Server
	mutex          sync.Mutex
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

func NewRelayServer(addr string, opts Options, snapshots *services.SnapshotService, mon *monitor.Monitor) *RelayServer {
	s := &RelayServer{
		addr:           addr,
		opts:           opts,
		roomManager:    room.NewRoomManager(nil, room.Options{GhostAfter: opts.GhostAfter, SweepEvery: opts.SweepEvery}),
		sessionManager: session.NewManager(),
		snapshots:      snapshots,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.broadcaster.Observe(mon.ObserveSend)
	s.roomManager.SetBroadcaster(s.broadcaster)

	s.router = s.routes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *RelayServer) Handler() http.Handler {
	return s.router
}

func (s *RelayServer) Start() error {
	s.mutex.Lock()
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.router}
	srv := s.httpServer
	s.mutex.Unlock()

	logger.Log.Infof("Relay server listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every websocket and stops
// room loops.
func (s *RelayServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	s.roomManager.CloseAll()

	s.mutex.Lock()
	srv := s.httpServer
	s.mutex.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *RelayServer) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", s.handleWebSocket)
	r.Handle("/metrics", s.monitor.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Get("/healthz", s.handleHealthz)
		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/snapshot", s.handleGetSnapshot)
			r.Delete("/snapshot", s.handleDeleteSnapshot)
			r.Get("/history", s.handleHistory)
		})
	})
	return r
}

func (s *RelayServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *RelayServer) handleConnection(conn network.Connection) {
	if s.opts.IdleTimeout > 0 {
		conn.SetIdleTimeout(s.opts.IdleTimeout)
	}
	sess := session.NewSession(uuid.New().String(), conn, s.opts.ActionRate, s.opts.ActionBurst)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineSessions()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.leaveRoom(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlineSessions()
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := conn.ReadPacket()
		if err != nil {
			if errors.Is(err, network.ErrBadEventName) || errors.Is(err, io.ErrShortBuffer) {
				s.monitor.IncDropped(monitor.DropMalformed)
				continue
			}
			return
		}
		start := time.Now()
		s.handlePacket(sess, packet)
		s.monitor.ObserveMessageLatency(time.Since(start))
	}
}
