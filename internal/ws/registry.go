package ws

import (
	"errors"
	"sync"
)

// ErrAlreadyJoined is returned when a connection that is already registered
// in a room attempts to join another one. Connections are single-room;
// moving between rooms requires a new connection.
var ErrAlreadyJoined = errors.New("connection already registered in a room")

// PresenceEntry is a participant's display metadata within a room.
type PresenceEntry struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Status string `json:"status"`
}

// presenceRecord tracks a presence entry together with the number of live
// connections the participant holds in the room. The entry is removed only
// when the last connection leaves.
type presenceRecord struct {
	entry PresenceEntry
	conns int
}

// room holds the live connections and presence table for one room key.
// Rooms are created implicitly on first join and garbage-collected when
// their connection set becomes empty.
type room struct {
	clients  map[*Client]bool
	presence map[string]*presenceRecord
}

// LeaveResult describes the outcome of deregistering a connection.
type LeaveResult struct {
	RoomKey  string
	UserID   string
	UserName string
	// FullyLeft is true when this was the participant's last connection
	// in the room, i.e. their presence entry was removed.
	FullyLeft bool
}

// Registry owns the forward index (room -> connections) and the reverse
// index (connection -> room, participant). Both indexes and the presence
// tables are mutated atomically under one lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	conns map[*Client]connRef
}

type connRef struct {
	roomKey string
	userID  string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		conns: make(map[*Client]connRef),
	}
}

// Join registers a connection under roomKey, creating the room if absent,
// and returns a snapshot of the room's presence for the joiner to consume.
// A connection already registered anywhere is rejected with ErrAlreadyJoined.
func (r *Registry) Join(roomKey string, c *Client) (map[string]PresenceEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; ok {
		return nil, ErrAlreadyJoined
	}

	rm, ok := r.rooms[roomKey]
	if !ok {
		rm = &room{
			clients:  make(map[*Client]bool),
			presence: make(map[string]*presenceRecord),
		}
		r.rooms[roomKey] = rm
	}

	rm.clients[c] = true
	r.conns[c] = connRef{roomKey: roomKey, userID: c.UserID()}

	rec, ok := rm.presence[c.UserID()]
	if !ok {
		rec = &presenceRecord{
			entry: PresenceEntry{
				Name:   c.UserName(),
				Color:  c.Color(),
				Status: "online",
			},
		}
		rm.presence[c.UserID()] = rec
	}
	rec.conns++

	return copyPresence(rm.presence), nil
}

// Leave deregisters a connection. It reports whether the connection was
// registered at all; unregistered connections are a no-op, since
// double-disconnect races are expected. When the room's connection set
// becomes empty the room itself is removed.
func (r *Registry) Leave(c *Client) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.conns[c]
	if !ok {
		return LeaveResult{}, false
	}
	delete(r.conns, c)

	result := LeaveResult{
		RoomKey:  ref.roomKey,
		UserID:   ref.userID,
		UserName: c.UserName(),
	}

	rm, ok := r.rooms[ref.roomKey]
	if !ok {
		return result, true
	}

	delete(rm.clients, c)

	if rec, ok := rm.presence[ref.userID]; ok {
		result.UserName = rec.entry.Name
		rec.conns--
		if rec.conns <= 0 {
			delete(rm.presence, ref.userID)
			result.FullyLeft = true
		}
	}

	if len(rm.clients) == 0 {
		delete(r.rooms, ref.roomKey)
	}

	return result, true
}

// Connections returns a snapshot of the live connections in a room.
func (r *Registry) Connections(roomKey string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomKey]
	if !ok {
		return nil
	}

	clients := make([]*Client, 0, len(rm.clients))
	for c := range rm.clients {
		clients = append(clients, c)
	}
	return clients
}

// Presence returns a snapshot of the presence table for a room.
func (r *Registry) Presence(roomKey string) map[string]PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomKey]
	if !ok {
		return map[string]PresenceEntry{}
	}
	return copyPresence(rm.presence)
}

// RoomCount returns the number of active rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// ConnectionCount returns the total number of live connections across all rooms.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// drain removes and returns every registered connection. Used on shutdown.
func (r *Registry) drain() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.conns))
	for c := range r.conns {
		clients = append(clients, c)
	}
	r.rooms = make(map[string]*room)
	r.conns = make(map[*Client]connRef)
	return clients
}

func copyPresence(src map[string]*presenceRecord) map[string]PresenceEntry {
	dst := make(map[string]PresenceEntry, len(src))
	for id, rec := range src {
		dst[id] = rec.entry
	}
	return dst
}
