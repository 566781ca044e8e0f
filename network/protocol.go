package network

// Transport-level events. Game events are named in the envelope package.
const (
	EventHeartbeat = "heartbeat"
	EventJoinRoom  = "room:join"
	EventLeaveRoom = "room:leave"
)

// JoinRoom is the body of room:join.
type JoinRoom struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserColor string `json:"userColor"`
}
