// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/roomsync/models"
)

// Database 数据库接口
type Database interface {
	// SaveRoomSnapshot replaces the stored snapshot of a room.
	SaveRoomSnapshot(ctx context.Context, snap models.RoomSnapshot) error
	LoadRoomSnapshot(ctx context.Context, roomID string) (*models.RoomSnapshot, error)
	DeleteRoomSnapshot(ctx context.Context, roomID string) error
	SaveGameRecord(ctx context.Context, rec models.GameRecord) error
	// ListGameRecords returns up to limit records of a room, newest first.
	ListGameRecords(ctx context.Context, roomID string, limit int) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)
