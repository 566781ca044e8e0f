package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/roomsync/models"
)

// Memory is a process-local Database. Nothing survives a restart.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]models.RoomSnapshot
	records   map[string][]models.GameRecord
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: make(map[string]models.RoomSnapshot),
		records:   make(map[string][]models.GameRecord),
	}
}

func (m *Memory) SaveRoomSnapshot(_ context.Context, snap models.RoomSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.FullState = append([]byte(nil), snap.FullState...)
	snap.UpdatedAt = time.Now()
	m.snapshots[snap.RoomID] = snap
	return nil
}

func (m *Memory) LoadRoomSnapshot(_ context.Context, roomID string) (*models.RoomSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[roomID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	snap.FullState = append([]byte(nil), snap.FullState...)
	return &snap, nil
}

func (m *Memory) DeleteRoomSnapshot(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[roomID]; !ok {
		return ErrRecordNotFound
	}
	delete(m.snapshots, roomID)
	return nil
}

func (m *Memory) SaveGameRecord(_ context.Context, rec models.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.records[rec.RoomID] = append(m.records[rec.RoomID], rec)
	return nil
}

func (m *Memory) ListGameRecords(_ context.Context, roomID string, limit int) ([]models.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := append([]models.GameRecord(nil), m.records[roomID]...)
	// Insertion order breaks ties between equal timestamps.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (m *Memory) Close() error { return nil }
