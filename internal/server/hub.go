// Package server coordinates connection registration, the protocol event
// loop, and room broadcast for the room relay via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// inboundFrame pairs a parsed client frame with the connection it arrived on.
type inboundFrame struct {
	client *Client
	frame  Frame
}

// Hub owns all chat state: the connection set, the room registry, and the
// connection tracker. Every inbound frame across every connection is handled
// one at a time by the Run loop, so registry and tracker mutations are
// serialized by construction and carry no locks of their own. The client map
// is additionally mutex-guarded because the broadcast path checks it.
type Hub struct {
	clients    map[*Client]bool
	inbound    chan inboundFrame
	register   chan *Client
	unregister chan *Client
	rooms      *registry
	tracker    *tracker
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub with an empty registry and tracker, ready to manage
// connections once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		inbound:    make(chan inboundFrame),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      newRegistry(),
		tracker:    newTracker(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel used for registering new connections.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering connections.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Run starts the hub's event loop. It should be called in its own goroutine;
// it returns only when the hub is shut down.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			h.drainUntilEmpty()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case evt := <-h.inbound:
			h.handleFrame(evt.client, evt.frame)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.tracker.register(client)
	log.Printf("Client %s connected from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)

	h.leaveAllRooms(client)
	log.Printf("Client %s disconnected. Total clients: %d", client.id, clientCount)
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// sendFrame marshals a frame and delivers it to a single client. Undeliverable
// frames are logged and dropped.
func (h *Hub) sendFrame(client *Client, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Error marshaling frame for client %s: %v", client.id, err)
		return
	}
	if !h.safeSend(client, payload) {
		log.Printf("Dropping frame for unwritable client %s", client.id)
	}
}

// broadcastFrame serializes a frame once and fans it out to every member of
// the room except exclude. Delivery is at-most-once: members whose send
// buffers are full or whose connections are closing are skipped, and are
// cleaned up by their own close event rather than by the broadcaster.
func (h *Hub) broadcastFrame(room *Room, frame any, exclude *Client) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Error marshaling broadcast for room %s: %v", room.Code, err)
		return
	}
	for member := range room.members {
		if member == exclude {
			continue
		}
		if !h.safeSend(member, payload) {
			log.Printf("Skipping unwritable client %s in room %s", member.id, room.Code)
		}
	}
}

// drainUntilEmpty keeps consuming events until every client has unregistered,
// so pump goroutines blocked on the unregister or inbound channels can finish
// their cleanup during shutdown.
func (h *Hub) drainUntilEmpty() {
	for {
		h.mutex.RLock()
		remaining := len(h.clients)
		h.mutex.RUnlock()
		if remaining == 0 {
			return
		}

		select {
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-h.inbound:
			// Frames from closing connections are discarded.
		}
	}
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection %s: %v", client.id, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete.
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

var hub = NewHub()
