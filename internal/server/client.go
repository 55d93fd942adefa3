// Package server manages individual WebSocket connections, handling the
// read/write pumps and lifecycle control for each one.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Client represents one WebSocket connection. Its id is an opaque handle
// unique to the live connection; nothing persists across reconnects.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	maxMessageSize int64
}

// NewClient creates a Client for the given WebSocket connection. The send
// channel is buffered so slow readers do not block the event loop.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// ID returns the connection's opaque identity handle.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing frames.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.id, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.id, err)
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		log.Printf("Frame from %s exceeded maximum size of %d bytes", c.id, c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Client %s disconnected: %v", c.id, err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Client %s connection closed: %v", c.id, err)
		return true
	}

	log.Printf("WebSocket read error from %s (%s): %v", c.id, c.addr, err)
	return true
}

// processFrame parses a raw inbound frame and feeds it to the hub's event
// loop. Malformed frames are logged and dropped; the connection stays open.
func (c *Client) processFrame(raw []byte) bool {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("Malformed frame from client %s: %v", c.id, err)
		return false
	}

	c.hub.inbound <- inboundFrame{client: c, frame: frame}
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in writePump: %v", err)
			}
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", c.id, err)
				return
			}
			if !ok {
				// The hub closed the send channel.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					if !isExpectedCloseError(err) {
						log.Printf("Error writing close message to %s: %v", c.id, err)
					}
				}
				return
			}
			if !c.writeFrames(payload) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for ping to %s: %v", c.id, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Error writing ping message to %s: %v", c.id, err)
				return
			}
		}
	}
}

// writeFrames writes one frame plus any frames already queued on the send
// channel, each as its own WebSocket message so clients parse them
// independently.
func (c *Client) writeFrames(payload []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("Error writing frame to %s: %v", c.id, err)
		return false
	}

	queued := len(c.send)
	for i := 0; i < queued; i++ {
		if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
			log.Printf("Error writing queued frame to %s: %v", c.id, err)
			return false
		}
	}
	return true
}
