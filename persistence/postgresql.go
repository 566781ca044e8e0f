// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动
)

var postgresDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS room_snapshots (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) UNIQUE NOT NULL,
            game_id VARCHAR(100) NOT NULL,
            full_state JSONB NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            game_id VARCHAR(100) NOT NULL,
            players JSONB NOT NULL,
            winner VARCHAR(255) NOT NULL DEFAULT '',
            draw BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
		// 创建索引以提高查询性能
		`CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id, created_at)`,
	},
	upsertSnapshot: `
        INSERT INTO room_snapshots (room_id, game_id, full_state)
        VALUES ($1, $2, $3)
        ON CONFLICT (room_id)
        DO UPDATE SET game_id = $2, full_state = $3, updated_at = CURRENT_TIMESTAMP`,
	loadSnapshot:   `SELECT game_id, full_state, updated_at FROM room_snapshots WHERE room_id = $1`,
	deleteSnapshot: `DELETE FROM room_snapshots WHERE room_id = $1`,
	insertRecord: `
        INSERT INTO game_records (room_id, game_id, players, winner, draw)
        VALUES ($1, $2, $3, $4, $5)`,
	listRecords: `
        SELECT game_id, players, winner, draw, created_at FROM game_records
        WHERE room_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
}

// PostgreSQL 数据库实现
type PostgreSQL struct {
	sqlStore
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	p := &PostgreSQL{sqlStore{db: db, q: postgresDialect}}
	// 初始化表结构
	if err := p.init(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}
