// services/snapshot_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wfunc/roomsync/game"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/models"
	"github.com/wfunc/roomsync/persistence"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// SnapshotService keeps the latest fullState of every room in memory and in
// the database, and records each game that reaches a decided end.
type SnapshotService struct {
	db    persistence.Database
	mu    sync.RWMutex
	cache map[string]*models.RoomSnapshot
	// terminal remembers which rooms' cached snapshot is already decided, so
	// one finished game produces one record.
	terminal map[string]bool
}

func NewSnapshotService(db persistence.Database) *SnapshotService {
	return &SnapshotService{
		db:       db,
		cache:    make(map[string]*models.RoomSnapshot),
		terminal: make(map[string]bool),
	}
}

// Save stores fullState for roomID. The relay does not run game rules; it
// only checks that the document has the fullState shape.
func (s *SnapshotService) Save(ctx context.Context, roomID string, fullState json.RawMessage) error {
	var full game.FullState
	if err := json.Unmarshal(fullState, &full); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if full.ActiveGameID == "" {
		return fmt.Errorf("%w: missing activeGameId", ErrInvalidSnapshot)
	}

	snap := models.RoomSnapshot{RoomID: roomID, GameID: full.ActiveGameID, FullState: fullState}
	if err := s.db.SaveRoomSnapshot(ctx, snap); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[roomID] = &snap
	wasTerminal := s.terminal[roomID]
	s.terminal[roomID] = full.State.Terminal
	s.mu.Unlock()

	if full.State.Terminal && !wasTerminal {
		if err := s.db.SaveGameRecord(ctx, recordOf(roomID, full)); err != nil {
			logger.Log.Warnf("record finished game in room %s: %v", roomID, err)
		}
	}
	return nil
}

// Load returns the latest snapshot of roomID, or persistence.ErrRecordNotFound.
func (s *SnapshotService) Load(ctx context.Context, roomID string) (*models.RoomSnapshot, error) {
	s.mu.RLock()
	snap, ok := s.cache[roomID]
	s.mu.RUnlock()
	if ok {
		cp := *snap
		return &cp, nil
	}

	snap, err := s.db.LoadRoomSnapshot(ctx, roomID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[roomID] = snap
	s.mu.Unlock()
	cp := *snap
	return &cp, nil
}

// Clear forgets the snapshot of roomID everywhere.
func (s *SnapshotService) Clear(ctx context.Context, roomID string) error {
	s.mu.Lock()
	delete(s.cache, roomID)
	delete(s.terminal, roomID)
	s.mu.Unlock()
	return s.db.DeleteRoomSnapshot(ctx, roomID)
}

// Evict drops roomID from the cache only; the stored snapshot stays.
func (s *SnapshotService) Evict(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, roomID)
}

func (s *SnapshotService) History(ctx context.Context, roomID string, limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.db.ListGameRecords(ctx, roomID, limit)
}

func recordOf(roomID string, full game.FullState) models.GameRecord {
	rec := models.GameRecord{
		RoomID: roomID,
		GameID: full.ActiveGameID,
		Draw:   full.State.Draw,
	}
	for i := 1; i <= len(full.Seats); i++ {
		seat := game.SeatIndex(i)
		p := full.Seats[seat]
		if p == nil {
			continue
		}
		outcome := "lose"
		switch {
		case full.State.Draw:
			outcome = "draw"
		case full.State.Winner == seat:
			outcome = "win"
			rec.Winner = p.ID
		}
		rec.Players = append(rec.Players, models.PlayerInfo{UserID: p.ID, Name: p.Name, Seat: i, Outcome: outcome})
	}
	return rec
}
