package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/roomsync/models"
)

// exercise runs the Database contract against db.
func exercise(t *testing.T, db Database) {
	t.Helper()
	ctx := context.Background()

	_, err := db.LoadRoomSnapshot(ctx, "r1")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	first := json.RawMessage(`{"activeGameId":"connect4","seats":{"1":null,"2":null},"gameState":{}}`)
	require.NoError(t, db.SaveRoomSnapshot(ctx, models.RoomSnapshot{RoomID: "r1", GameID: "connect4", FullState: first}))

	second := json.RawMessage(`{"activeGameId":"tictactoe","seats":{"1":null,"2":null},"gameState":{}}`)
	require.NoError(t, db.SaveRoomSnapshot(ctx, models.RoomSnapshot{RoomID: "r1", GameID: "tictactoe", FullState: second}))

	snap, err := db.LoadRoomSnapshot(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "tictactoe", snap.GameID)
	assert.JSONEq(t, string(second), string(snap.FullState))

	require.NoError(t, db.DeleteRoomSnapshot(ctx, "r1"))
	assert.ErrorIs(t, db.DeleteRoomSnapshot(ctx, "r1"), ErrRecordNotFound)
	_, err = db.LoadRoomSnapshot(ctx, "r1")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	players := []models.PlayerInfo{{UserID: "A", Name: "Alice", Seat: 1, Outcome: "win"}, {UserID: "B", Name: "Bob", Seat: 2, Outcome: "lose"}}
	require.NoError(t, db.SaveGameRecord(ctx, models.GameRecord{RoomID: "r1", GameID: "connect4", Players: players, Winner: "A"}))
	require.NoError(t, db.SaveGameRecord(ctx, models.GameRecord{RoomID: "r1", GameID: "rps", Players: players, Draw: true}))
	require.NoError(t, db.SaveGameRecord(ctx, models.GameRecord{RoomID: "r2", GameID: "rps", Players: players}))

	recs, err := db.ListGameRecords(ctx, "r1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rps", recs[0].GameID)
	assert.True(t, recs[0].Draw)
	assert.Equal(t, players, recs[1].Players)

	recs, err = db.ListGameRecords(ctx, "r1", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMemory(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	exercise(t, db)
}

func TestSQLite(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "data", "roomsync.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer db.Close()
	exercise(t, db)
}

func TestMemory_SnapshotIsCopied(t *testing.T) {
	db := NewMemory()
	ctx := context.Background()
	state := []byte(`{"a":1}`)
	require.NoError(t, db.SaveRoomSnapshot(ctx, models.RoomSnapshot{RoomID: "r", FullState: state}))
	state[2] = 'b'

	snap, err := db.LoadRoomSnapshot(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(snap.FullState))
}
