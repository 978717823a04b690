package domain

import "strings"

// RoomCode is the short numeric identifier clients use to find a room.
type RoomCode string

// ParseRoomCode trims surrounding whitespace. The result may be empty.
func ParseRoomCode(raw string) RoomCode {
	return RoomCode(strings.TrimSpace(raw))
}

// SystemUsername is the sender name used for join/leave notices.
const SystemUsername = "System"

// ChatMessage is the payload of a receiveMessage event.
type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// SystemMessage builds a notice from the System sender.
func SystemMessage(text string) ChatMessage {
	return ChatMessage{Username: SystemUsername, Message: text}
}
