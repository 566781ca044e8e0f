package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS room_snapshots (
            room_id TEXT PRIMARY KEY,
            game_id TEXT NOT NULL,
            full_state TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS game_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_id TEXT NOT NULL,
            game_id TEXT NOT NULL,
            players TEXT NOT NULL,
            winner TEXT NOT NULL DEFAULT '',
            draw BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id, created_at)`,
	},
	upsertSnapshot: `
        INSERT INTO room_snapshots (room_id, game_id, full_state) VALUES (?, ?, ?)
        ON CONFLICT (room_id)
        DO UPDATE SET game_id = excluded.game_id, full_state = excluded.full_state, updated_at = CURRENT_TIMESTAMP`,
	loadSnapshot:   `SELECT game_id, full_state, updated_at FROM room_snapshots WHERE room_id = ?`,
	deleteSnapshot: `DELETE FROM room_snapshots WHERE room_id = ?`,
	insertRecord:   `INSERT INTO game_records (room_id, game_id, players, winner, draw) VALUES (?, ?, ?, ?, ?)`,
	listRecords: `
        SELECT game_id, players, winner, draw, created_at FROM game_records
        WHERE room_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
}

// SQLite keeps snapshots in a local file, for single-node relays.
type SQLite struct {
	sqlStore
}

// NewSQLite opens (and creates if missing) the database at path with WAL
// journaling and a busy timeout.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLite{sqlStore{db: db, q: sqliteDialect}}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
