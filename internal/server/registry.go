// Package server implements the room registry: the in-memory map of live
// rooms keyed by their short code, together with code generation.
package server

import (
	"fmt"

	gonanoid "github.com/jaevor/go-nanoid"
)

const (
	roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	roomCodeLength   = 6
	// roomCodeWideLength is used once the standard code space has collided
	// roomCodeMaxAttempts times in a row.
	roomCodeWideLength  = 8
	roomCodeMaxAttempts = 16
)

// Room is a server-held channel: a code, a member set, and an append-only
// chat log. Join/leave notices are broadcast live but never logged, so the
// log contains chat messages only.
type Room struct {
	Code    string
	members map[*Client]struct{}
	log     []ChatMessage
}

func newRoom(code string) *Room {
	return &Room{
		Code:    code,
		members: make(map[*Client]struct{}),
	}
}

func (r *Room) addMember(c *Client)    { r.members[c] = struct{}{} }
func (r *Room) removeMember(c *Client) { delete(r.members, c) }

// MemberCount returns the number of connections currently joined.
func (r *Room) MemberCount() int { return len(r.members) }

func (r *Room) appendMessage(msg ChatMessage) { r.log = append(r.log, msg) }

// History returns a copy of the chat log in arrival order. The slice is never
// nil so a fresh room replays as an empty JSON array, not null.
func (r *Room) History() []ChatMessage {
	history := make([]ChatMessage, len(r.log))
	copy(history, r.log)
	return history
}

// registry owns every live room, keyed by uppercase room code. It is mutated
// only from the hub's event loop, so no locking is needed.
type registry struct {
	rooms        map[string]*Room
	generateCode func() string
	generateWide func() string
}

func newRegistry() *registry {
	generate, err := gonanoid.CustomASCII(roomCodeAlphabet, roomCodeLength)
	if err != nil {
		panic(fmt.Sprintf("room code generator: %v", err))
	}
	generateWide, err := gonanoid.CustomASCII(roomCodeAlphabet, roomCodeWideLength)
	if err != nil {
		panic(fmt.Sprintf("wide room code generator: %v", err))
	}
	return &registry{
		rooms:        make(map[string]*Room),
		generateCode: generate,
		generateWide: generateWide,
	}
}

// create generates a code that is unique among live rooms and inserts an
// empty room under it. Collisions retry up to roomCodeMaxAttempts before the
// code space is widened to roomCodeWideLength characters.
func (reg *registry) create() (*Room, error) {
	for attempt := 0; attempt < roomCodeMaxAttempts; attempt++ {
		code := reg.generateCode()
		if _, taken := reg.rooms[code]; taken {
			continue
		}
		room := newRoom(code)
		reg.rooms[code] = room
		return room, nil
	}

	code := reg.generateWide()
	if _, taken := reg.rooms[code]; taken {
		return nil, fmt.Errorf("room code space exhausted after %d attempts", roomCodeMaxAttempts+1)
	}
	room := newRoom(code)
	reg.rooms[code] = room
	return room, nil
}

// lookup expects a code already normalized to uppercase.
func (reg *registry) lookup(code string) (*Room, bool) {
	room, ok := reg.rooms[code]
	return room, ok
}

// remove deletes a room. Only called once its member set is empty.
func (reg *registry) remove(code string) {
	delete(reg.rooms, code)
}

func (reg *registry) count() int { return len(reg.rooms) }
