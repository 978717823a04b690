package core

// Inbound event names.
const (
	EventCreateRoom  = "createRoom"
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
	EventLeaveRoom   = "leaveRoom"
	EventPing        = "ping"
	EventDisconnect  = "disconnect"
)

// Outbound event names.
const (
	EventError          = "error"
	EventRoomCreated    = "roomCreated"
	EventRoomJoined     = "roomJoined"
	EventRoomLeft       = "roomLeft"
	EventUserCount      = "userCount"
	EventReceiveMessage = "receiveMessage"
	EventPong           = "pong"
)

// Event is one outbound instruction: a name and its JSON-encodable payload.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}
