// Package server implements the core of the room relay: an in-memory
// registry of short-lived chat rooms, per-connection state tracking, and the
// WebSocket frame protocol used to create, join, and message rooms.
//
// All protocol handling is funneled through a single hub event loop, so room
// membership and message ordering are serialized by construction. Rooms live
// only as long as they have members; there is no persistence.
package server
