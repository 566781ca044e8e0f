package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/models"
	"github.com/wfunc/roomsync/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server with its own registry, so tests can run
// several side by side.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes rcvr's methods under its type name.
func (s *Server) Register(rcvr any) error {
	return s.rpc.Register(rcvr)
}

func (s *Server) Addr() string { return s.address }

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

const callTimeout = 5 * time.Second

// RoomService is the admin surface over stored room snapshots.
type RoomService struct {
	snapshots *services.SnapshotService
}

// NewRoomService creates a new RoomService.
func NewRoomService(snapshots *services.SnapshotService) *RoomService {
	return &RoomService{snapshots: snapshots}
}

// RoomArgs names a room. Methods follow the net/rpc signature: exported
// method, exported arguments, second argument a pointer, error result.
type RoomArgs struct {
	RoomID string
}

type SnapshotReply struct {
	Snapshot models.RoomSnapshot
}

type ClearReply struct {
	Cleared bool
}

type HistoryArgs struct {
	RoomID string
	Limit  int
}

type HistoryReply struct {
	Records []models.GameRecord
}

func (rs *RoomService) GetSnapshot(args *RoomArgs, reply *SnapshotReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	snap, err := rs.snapshots.Load(ctx, args.RoomID)
	if err != nil {
		return err
	}
	reply.Snapshot = *snap
	return nil
}

func (rs *RoomService) ClearSnapshot(args *RoomArgs, reply *ClearReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := rs.snapshots.Clear(ctx, args.RoomID); err != nil {
		return err
	}
	reply.Cleared = true
	return nil
}

func (rs *RoomService) History(args *HistoryArgs, reply *HistoryReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	recs, err := rs.snapshots.History(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = recs
	return nil
}
