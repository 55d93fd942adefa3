// Package server tracks per-connection protocol state: the nickname and the
// set of rooms each connection has joined.
package server

// connState is the protocol state of a single connection. A connection starts
// unidentified; the first successful join sets the nickname and later joins
// cannot change it.
type connState struct {
	nickname    string
	joinedRooms map[string]struct{}
}

// tracker maintains connState for every live connection. Like the registry it
// is owned by the hub and touched only from the event loop.
type tracker struct {
	conns map[*Client]*connState
}

func newTracker() *tracker {
	return &tracker{conns: make(map[*Client]*connState)}
}

func (t *tracker) register(c *Client) {
	t.conns[c] = &connState{joinedRooms: make(map[string]struct{})}
}

// setNicknameOnce sets the connection's nickname if it is still unset and
// returns the effective nickname. Redundant calls with a different name are
// no-ops, so all later attribution keeps the first nickname.
func (t *tracker) setNicknameOnce(c *Client, name string) string {
	state, ok := t.conns[c]
	if !ok {
		return name
	}
	if state.nickname == "" {
		state.nickname = name
	}
	return state.nickname
}

func (t *tracker) nickname(c *Client) string {
	if state, ok := t.conns[c]; ok {
		return state.nickname
	}
	return ""
}

func (t *tracker) recordJoin(c *Client, code string) {
	if state, ok := t.conns[c]; ok {
		state.joinedRooms[code] = struct{}{}
	}
}

// hasJoined authorizes room-scoped actions such as send_message.
func (t *tracker) hasJoined(c *Client, code string) bool {
	state, ok := t.conns[c]
	if !ok {
		return false
	}
	_, joined := state.joinedRooms[code]
	return joined
}

// forget stops tracking the connection and returns its final state so the
// caller can clean up room membership. Returns nil for unknown connections.
func (t *tracker) forget(c *Client) *connState {
	state, ok := t.conns[c]
	if !ok {
		return nil
	}
	delete(t.conns, c)
	return state
}
