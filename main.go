package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/monitor"
	"github.com/wfunc/roomsync/persistence"
	"github.com/wfunc/roomsync/rpc"
	"github.com/wfunc/roomsync/server"
	"github.com/wfunc/roomsync/services"
)

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sqlite":
		return persistence.NewSQLite(cfg.SQLite.Path)
	case "memory", "":
		return persistence.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open %s database: %v", cfg.Database.Driver, err)
	}
	defer db.Close()
	logger.Log.Infof("Database ready (%s).", cfg.Database.Driver)

	snapshots := services.NewSnapshotService(db)
	mon := monitor.NewMonitor("roomsync")

	// Admin RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to listen for RPC: %v", err)
	}
	if err := rpcServer.Register(rpc.NewRoomService(snapshots)); err != nil {
		logger.Log.Fatalf("Failed to register room service: %v", err)
	}
	go rpcServer.Start()

	health, err := rpc.NewHealthServer(cfg.Server.GRPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to listen for gRPC health: %v", err)
	}
	go health.Start()

	relay := server.NewRelayServer(cfg.Server.HTTPAddress, server.OptionsFrom(cfg.Server), snapshots, mon)
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Start() }()
	health.SetServing(true)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Log.Infof("Received %s, shutting down.", s)
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Relay server stopped: %v", err)
		}
	}

	health.SetServing(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := relay.Shutdown(ctx); err != nil {
		logger.Log.Warnf("Relay shutdown: %v", err)
	}
	rpcServer.Stop()
	health.Stop()
}
