package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/wfunc/roomsync/models"
)

const queryTimeout = 5 * time.Second

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	schema         []string
	upsertSnapshot string
	loadSnapshot   string
	deleteSnapshot string
	insertRecord   string
	listRecords    string
}

// sqlStore implements Database over database/sql for a given dialect.
type sqlStore struct {
	db *sql.DB
	q  dialect
}

func (s *sqlStore) init() error {
	for _, stmt := range s.q.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) SaveRoomSnapshot(ctx context.Context, snap models.RoomSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.q.upsertSnapshot, snap.RoomID, snap.GameID, string(snap.FullState))
	return err
}

func (s *sqlStore) LoadRoomSnapshot(ctx context.Context, roomID string) (*models.RoomSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		snap  = models.RoomSnapshot{RoomID: roomID}
		state string
	)
	err := s.db.QueryRowContext(ctx, s.q.loadSnapshot, roomID).Scan(&snap.GameID, &state, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	snap.FullState = json.RawMessage(state)
	return &snap, nil
}

func (s *sqlStore) DeleteRoomSnapshot(ctx context.Context, roomID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.q.deleteSnapshot, roomID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *sqlStore) SaveGameRecord(ctx context.Context, rec models.GameRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, s.q.insertRecord, rec.RoomID, rec.GameID, string(players), rec.Winner, rec.Draw)
	return err
}

func (s *sqlStore) ListGameRecords(ctx context.Context, roomID string, limit int) ([]models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.q.listRecords, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		rec := models.GameRecord{RoomID: roomID}
		var players string
		if err := rows.Scan(&rec.GameID, &players, &rec.Winner, &rec.Draw, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(players), &rec.Players); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
