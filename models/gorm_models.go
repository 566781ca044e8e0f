// models/gorm_models.go
package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// GormRoomSnapshot 房间快照模型
type GormRoomSnapshot struct {
	gorm.Model
	RoomID    string `gorm:"uniqueIndex;not null"`
	GameID    string `gorm:"not null"`
	FullState string `gorm:"type:jsonb;not null"`
}

func (GormRoomSnapshot) TableName() string { return "room_snapshots" }

func (m GormRoomSnapshot) ToSnapshot() *RoomSnapshot {
	return &RoomSnapshot{
		RoomID:    m.RoomID,
		GameID:    m.GameID,
		FullState: json.RawMessage(m.FullState),
		UpdatedAt: m.UpdatedAt,
	}
}

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomID  string `gorm:"index;not null"`
	GameID  string `gorm:"not null"`
	Players string `gorm:"type:jsonb;not null"`
	Winner  string
	Draw    bool `gorm:"default:false"`
}

func (GormGameRecord) TableName() string { return "game_records" }

func NewGormGameRecord(rec GameRecord) (GormGameRecord, error) {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return GormGameRecord{}, err
	}
	return GormGameRecord{
		RoomID:  rec.RoomID,
		GameID:  rec.GameID,
		Players: string(players),
		Winner:  rec.Winner,
		Draw:    rec.Draw,
	}, nil
}

func (m GormGameRecord) ToRecord() (GameRecord, error) {
	rec := GameRecord{
		RoomID:    m.RoomID,
		GameID:    m.GameID,
		Winner:    m.Winner,
		Draw:      m.Draw,
		CreatedAt: m.CreatedAt,
	}
	if err := json.Unmarshal([]byte(m.Players), &rec.Players); err != nil {
		return GameRecord{}, err
	}
	return rec, nil
}
