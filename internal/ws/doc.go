// Package ws implements the real-time collaboration session core.
//
// The package implements:
//   - Registry: room -> connection set and connection -> room indexes,
//     plus the per-room presence table, mutated atomically
//   - Client: one live WebSocket connection with a buffered send channel
//   - Service: broadcast engine and session lifecycle controller
//     (join/leave announcements, dead-connection eviction)
//   - Handler: per-connection protocol loops for the document
//     collaboration and project chat endpoints
//
// Key properties:
//   - Rooms are created on first join and garbage-collected on last leave
//   - Delivery to one connection never blocks on another; a failed
//     delivery evicts only the affected connection
//   - Sync payloads are opaque: relayed unchanged and in order, never
//     interpreted
//   - Chat messages are persisted before broadcast; a message that failed
//     to persist is never relayed
package ws
