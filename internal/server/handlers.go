// Package server exposes the HTTP handlers for WebSocket upgrades and health
// checks.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// NewWebSocketHandler returns a handler that upgrades HTTP requests to
// WebSocket connections and registers the resulting clients with h, which
// launches the read and write pumps.
func NewWebSocketHandler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(conn, h, r.RemoteAddr)
		client.hub.register <- client
	}
}

// WebSocketHandler serves WebSocket upgrades against the global hub.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	NewWebSocketHandler(hub)(w, r)
}

// HealthHandler provides a simple health check endpoint that reports server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Room relay server is running!")
}
