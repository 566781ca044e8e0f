// models/models.go
package models

import (
	"encoding/json"
	"time"
)

// RoomSnapshot 房间最近一次持久化的完整游戏状态
type RoomSnapshot struct {
	RoomID    string          `json:"roomId"`
	GameID    string          `json:"gameId"`
	FullState json.RawMessage `json:"fullState"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// GameRecord 一局结束的游戏
type GameRecord struct {
	RoomID    string       `json:"roomId"`
	GameID    string       `json:"gameId"`
	Players   []PlayerInfo `json:"players"`
	Winner    string       `json:"winner,omitempty"`
	Draw      bool         `json:"draw"`
	CreatedAt time.Time    `json:"createdAt"`
}

// PlayerInfo 玩家信息（用于游戏记录）
type PlayerInfo struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Seat    int    `json:"seat"`
	Outcome string `json:"outcome"` // win/lose/draw
}
