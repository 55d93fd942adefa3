// Package server defines the wire frame types exchanged with chat clients and
// shared helpers reused across client and hub logic.
package server

import "strings"

// Inbound frame types.
const (
	FrameCreateRoom  = "create_room"
	FrameJoinRoom    = "join_room"
	FrameSendMessage = "send_message"
)

// Outbound frame types.
const (
	FrameRoomCreated = "room_created"
	FrameJoinedRoom  = "joined_room"
	FrameMessage     = "message"
	FrameUserJoined  = "user_joined"
	FrameUserLeft    = "user_left"
	FrameError       = "error"
)

// Error reasons reported to clients.
const (
	ErrRoomNotFound = "Room not found"
	ErrNotInRoom    = "Not in this room"
)

// Frame is the JSON envelope clients send. Type selects the operation; the
// remaining fields are populated depending on the operation.
type Frame struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ChatMessage is a chat broadcast frame. The same value is stored in the
// room's log, so late joiners replay exactly what earlier members received.
type ChatMessage struct {
	Type      string `json:"type"`
	Nickname  string `json:"nickname"`
	Message   string `json:"message"`
	RoomCode  string `json:"roomCode"`
	Timestamp int64  `json:"timestamp"`
}

type roomCreatedFrame struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
}

type joinedRoomFrame struct {
	Type     string        `json:"type"`
	RoomCode string        `json:"roomCode"`
	Messages []ChatMessage `json:"messages"`
}

// presenceFrame announces a member joining or leaving a room. These frames are
// broadcast live and never stored in the room log.
type presenceFrame struct {
	Type      string `json:"type"`
	Nickname  string `json:"nickname"`
	Timestamp int64  `json:"timestamp"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
