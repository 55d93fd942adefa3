// Package testhelpers provides shared utilities for testing the room relay.
//
// It contains helpers for dialing WebSocket connections against test servers
// and for exchanging protocol frames, reducing duplication across the
// integration tests.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/roomrelay/internal/server"
)

// ConnectWebSocket dials the WebSocket endpoint with the given Origin header
// and returns the connection.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendFrame marshals a protocol frame and sends it as a text message.
func SendFrame(t *testing.T, conn *websocket.Conn, frame server.Frame) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("Failed to send %s frame: %v", frame.Type, err)
	}
}

// ReceiveFrame reads the next frame from the connection and decodes it into a
// generic map. It fails the test if nothing arrives before the timeout.
func ReceiveFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}

	var frame map[string]any
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("Failed to decode frame %q: %v", payload, err)
	}
	return frame
}

// ReceiveFrameOfType reads frames until one with the wanted type arrives,
// skipping unrelated traffic such as presence notices. It fails the test if
// the wanted frame does not arrive before the deadline.
func ReceiveFrameOfType(t *testing.T, conn *websocket.Conn, frameType string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %q frame", frameType)
		}
		frame := ReceiveFrame(t, conn, remaining)
		if frame["type"] == frameType {
			return frame
		}
	}
}

// ExpectNoFrame asserts that nothing arrives on the connection within the
// timeout.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no frame, but received %q", payload)
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of frames: %v", err)
}

// CreateRoom performs a create_room round trip and returns the new room code.
func CreateRoom(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	SendFrame(t, conn, server.Frame{Type: server.FrameCreateRoom})
	frame := ReceiveFrameOfType(t, conn, server.FrameRoomCreated, 2*time.Second)
	code, ok := frame["roomCode"].(string)
	if !ok || code == "" {
		t.Fatalf("room_created frame carries no room code: %v", frame)
	}
	return code
}

// JoinRoom performs a join_room round trip and returns the joined_room reply.
func JoinRoom(t *testing.T, conn *websocket.Conn, code, nickname string) map[string]any {
	t.Helper()
	SendFrame(t, conn, server.Frame{Type: server.FrameJoinRoom, RoomCode: code, Nickname: nickname})
	return ReceiveFrameOfType(t, conn, server.FrameJoinedRoom, 2*time.Second)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
