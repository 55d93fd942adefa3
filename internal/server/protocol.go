// Package server implements the frame protocol: dispatching inbound client
// frames, validating them against connection and room state, and emitting
// direct replies and room broadcasts.
package server

import (
	"log"
	"strings"
	"time"
)

// nowMillis returns the server-assigned timestamp carried on broadcast
// frames: wall-clock milliseconds at the moment of handling.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// handleFrame dispatches one inbound frame. It runs on the hub's event loop,
// so every handler below sees registry and tracker state free of concurrent
// mutation.
func (h *Hub) handleFrame(client *Client, frame Frame) {
	if client == nil {
		return
	}

	switch frame.Type {
	case FrameCreateRoom:
		h.handleCreateRoom(client)
	case FrameJoinRoom:
		h.handleJoinRoom(client, frame)
	case FrameSendMessage:
		h.handleSendMessage(client, frame)
	default:
		// Unknown frame types are ignored without an error reply.
	}
}

func (h *Hub) sendError(client *Client, reason string) {
	h.sendFrame(client, errorFrame{Type: FrameError, Message: reason})
}

// handleCreateRoom creates an empty room and replies with its code. Creation
// never joins the requester; clients follow up with a join_room frame.
func (h *Hub) handleCreateRoom(client *Client) {
	room, err := h.rooms.create()
	if err != nil {
		log.Printf("Room creation failed for client %s: %v", client.id, err)
		return
	}

	log.Printf("Client %s created room %s. Live rooms: %d", client.id, room.Code, h.rooms.count())
	h.sendFrame(client, roomCreatedFrame{Type: FrameRoomCreated, RoomCode: room.Code})
}

// handleJoinRoom adds the connection to a room, replies with the room's chat
// log, and announces the join to the other members. The first join fixes the
// connection's nickname; later joins keep it.
func (h *Hub) handleJoinRoom(client *Client, frame Frame) {
	code := strings.ToUpper(frame.RoomCode)
	room, ok := h.rooms.lookup(code)
	if !ok {
		h.sendError(client, ErrRoomNotFound)
		return
	}

	nickname := h.tracker.setNicknameOnce(client, frame.Nickname)
	h.tracker.recordJoin(client, code)
	room.addMember(client)

	h.sendFrame(client, joinedRoomFrame{
		Type:     FrameJoinedRoom,
		RoomCode: code,
		Messages: room.History(),
	})

	h.broadcastFrame(room, presenceFrame{
		Type:      FrameUserJoined,
		Nickname:  nickname,
		Timestamp: nowMillis(),
	}, client)

	log.Printf("Client %s joined room %s as %q. Members: %d", client.id, code, nickname, room.MemberCount())
}

// handleSendMessage appends a chat message to the room log and broadcasts it
// to the whole room, sender included. The sender renders its own message from
// the broadcast, which keeps ordering consistent across all members.
func (h *Hub) handleSendMessage(client *Client, frame Frame) {
	code := strings.ToUpper(frame.RoomCode)
	room, ok := h.rooms.lookup(code)
	if code == "" || !ok {
		h.sendError(client, ErrRoomNotFound)
		return
	}

	if !h.tracker.hasJoined(client, code) {
		h.sendError(client, ErrNotInRoom)
		return
	}

	msg := ChatMessage{
		Type:      FrameMessage,
		Nickname:  h.tracker.nickname(client),
		Message:   frame.Message,
		RoomCode:  code,
		Timestamp: nowMillis(),
	}
	room.appendMessage(msg)
	h.broadcastFrame(room, msg, nil)
}

// leaveAllRooms removes a closed connection from every room it had joined,
// notifies the remaining members, and deletes any room left without members.
func (h *Hub) leaveAllRooms(client *Client) {
	state := h.tracker.forget(client)
	if state == nil {
		return
	}

	for code := range state.joinedRooms {
		room, ok := h.rooms.lookup(code)
		if !ok {
			continue
		}
		room.removeMember(client)

		if state.nickname != "" {
			h.broadcastFrame(room, presenceFrame{
				Type:      FrameUserLeft,
				Nickname:  state.nickname,
				Timestamp: nowMillis(),
			}, client)
		}

		if room.MemberCount() == 0 {
			h.rooms.remove(code)
			log.Printf("Room %s deleted, no members remaining", code)
		}
	}
}
