package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateGeneratesValidCodes(t *testing.T) {
	reg := newRegistry()

	for i := 0; i < 50; i++ {
		room, err := reg.create()
		require.NoError(t, err)
		require.Len(t, room.Code, roomCodeLength)

		for _, ch := range room.Code {
			assert.Contains(t, roomCodeAlphabet, string(ch),
				"code %q contains character outside the room code alphabet", room.Code)
		}
	}
}

func TestRegistryCreateCodesUniqueAmongLiveRooms(t *testing.T) {
	reg := newRegistry()
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		room, err := reg.create()
		require.NoError(t, err)
		require.False(t, seen[room.Code], "duplicate code %q", room.Code)
		seen[room.Code] = true
	}

	assert.Equal(t, 200, reg.count())
}

func TestRegistryCreateRetriesOnCollision(t *testing.T) {
	reg := newRegistry()

	codes := []string{"SAME01", "SAME01", "FRESH1"}
	calls := 0
	reg.generateCode = func() string {
		code := codes[calls]
		calls++
		return code
	}

	first, err := reg.create()
	require.NoError(t, err)
	assert.Equal(t, "SAME01", first.Code)

	second, err := reg.create()
	require.NoError(t, err)
	assert.Equal(t, "FRESH1", second.Code)
	assert.Equal(t, 3, calls, "expected a retry after the collision")
}

func TestRegistryCreateWidensCodeSpaceWhenExhausted(t *testing.T) {
	reg := newRegistry()
	reg.generateCode = func() string { return "SAME01" }
	reg.generateWide = func() string { return "WIDE0001" }

	_, err := reg.create()
	require.NoError(t, err)

	room, err := reg.create()
	require.NoError(t, err)
	assert.Equal(t, "WIDE0001", room.Code)
	assert.Len(t, room.Code, roomCodeWideLength)
}

func TestRegistryLookupAndRemove(t *testing.T) {
	reg := newRegistry()

	room, err := reg.create()
	require.NoError(t, err)

	found, ok := reg.lookup(room.Code)
	require.True(t, ok)
	assert.Same(t, room, found)

	reg.remove(room.Code)
	_, ok = reg.lookup(room.Code)
	assert.False(t, ok)
	assert.Zero(t, reg.count())
}

func TestRoomHistoryIsCopyAndNeverNil(t *testing.T) {
	room := newRoom("AB12CD")

	history := room.History()
	require.NotNil(t, history, "fresh room must replay an empty array, not null")
	assert.Empty(t, history)

	room.appendMessage(ChatMessage{Type: FrameMessage, Nickname: "Alice", Message: "hi", RoomCode: "AB12CD", Timestamp: 1})
	room.appendMessage(ChatMessage{Type: FrameMessage, Nickname: "Bob", Message: "yo", RoomCode: "AB12CD", Timestamp: 2})

	history = room.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Message)
	assert.Equal(t, "yo", history[1].Message)

	// Mutating the copy must not touch the room's log.
	history[0].Message = "changed"
	assert.Equal(t, "hi", room.History()[0].Message)
}

func TestRoomMembership(t *testing.T) {
	room := newRoom("AB12CD")
	hub := NewHub()
	alice := NewClient(nil, hub, "test")
	bob := NewClient(nil, hub, "test")

	room.addMember(alice)
	room.addMember(bob)
	assert.Equal(t, 2, room.MemberCount())

	room.removeMember(alice)
	assert.Equal(t, 1, room.MemberCount())

	room.removeMember(bob)
	assert.Zero(t, room.MemberCount())
}
