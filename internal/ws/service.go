package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/research-collab/backend/internal/model"
)

// MessageStore is the durable chat storage consumed by the protocol
// handler. Append must assign the message ID and server timestamp; the
// returned copy is the authoritative one broadcast to the room.
type MessageStore interface {
	Append(ctx context.Context, projectID, userID, userName, content string) (*model.ChatMessage, error)
}

// Service is the broadcast engine and session lifecycle controller for
// collaboration rooms. All fan-out and join/leave orchestration goes
// through here; the registry only holds state.
type Service struct {
	registry *Registry
}

// NewService creates a new room service.
func NewService() *Service {
	return &Service{registry: NewRegistry()}
}

// Registry returns the room registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Connect registers a client in a room, announces the join to existing
// members, and unicasts the current presence snapshot to the new client.
func (s *Service) Connect(roomKey string, c *Client) error {
	presence, err := s.registry.Join(roomKey, c)
	if err != nil {
		return err
	}

	log.Printf("User %s (%s) connected to room %s", c.UserID(), c.UserName(), roomKey)

	joined, err := json.Marshal(JoinedEvent{
		Type:      MessageTypeUserJoined,
		UserID:    c.UserID(),
		UserName:  c.UserName(),
		UserColor: c.Color(),
	})
	if err == nil {
		s.Broadcast(roomKey, joined, c)
	}

	snapshot, err := json.Marshal(PresenceEvent{
		Type:  MessageTypePresence,
		Users: presence,
	})
	if err == nil {
		c.Send(snapshot)
	}

	return nil
}

// Disconnect deregisters a client and, if it was the participant's last
// connection in the room, announces the leave to the remaining members.
// Disconnecting an already-removed client is a no-op, so the explicit
// close path and broadcast-detected eviction can race safely.
func (s *Service) Disconnect(c *Client) {
	c.Close()

	result, ok := s.registry.Leave(c)
	if !ok {
		return
	}

	log.Printf("User %s (%s) disconnected from room %s after %s",
		result.UserID, result.UserName, result.RoomKey, time.Since(c.ConnectedAt()).Round(time.Second))

	if result.FullyLeft {
		s.announceLeft(result, c)
	}
}

// Broadcast delivers a text frame to every connection in the room except
// the excluded one. Delivery is per-connection and non-blocking; connections
// whose delivery fails are evicted from the room and a leave announcement
// goes out to the survivors. The recursion is bounded because a dead
// connection is removed from the registry before the announcement.
func (s *Service) Broadcast(roomKey string, data []byte, exclude *Client) {
	s.Relay(roomKey, websocket.TextMessage, data, exclude)
}

// Relay delivers a frame with an explicit opcode, so relayed binary
// payloads reach recipients as binary frames. Same delivery and eviction
// semantics as Broadcast.
func (s *Service) Relay(roomKey string, messageType int, data []byte, exclude *Client) {
	var dead []*Client
	for _, c := range s.registry.Connections(roomKey) {
		if c == exclude {
			continue
		}
		if !c.SendFrame(messageType, data) {
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		s.evict(c)
	}
}

// Unicast delivers data to every connection a participant holds in a room.
func (s *Service) Unicast(roomKey, userID string, data []byte) {
	var dead []*Client
	for _, c := range s.registry.Connections(roomKey) {
		if c.UserID() != userID {
			continue
		}
		if !c.Send(data) {
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		s.evict(c)
	}
}

// AnnounceMessageDeleted pushes a chat message deletion event to the
// project's live chat room, if any.
func (s *Service) AnnounceMessageDeleted(projectID, messageID string) {
	data, err := json.Marshal(DeletedEvent{
		Type:      MessageTypeMessageDeleted,
		MessageID: messageID,
	})
	if err != nil {
		return
	}
	s.Broadcast(ChatRoomKey(projectID), data, nil)
}

// RoomCount returns the number of active rooms.
func (s *Service) RoomCount() int {
	return s.registry.RoomCount()
}

// ConnectionCount returns the total number of live connections.
func (s *Service) ConnectionCount() int {
	return s.registry.ConnectionCount()
}

// Close tears down every registered connection.
func (s *Service) Close() {
	for _, c := range s.registry.drain() {
		c.Close()
	}
}

// evict removes a connection whose delivery failed and announces the leave
// to the remaining room members.
func (s *Service) evict(c *Client) {
	c.Close()

	result, ok := s.registry.Leave(c)
	if !ok {
		return
	}

	log.Printf("Evicted dead connection of user %s from room %s", result.UserID, result.RoomKey)

	if result.FullyLeft {
		s.announceLeft(result, c)
	}
}

func (s *Service) announceLeft(result LeaveResult, exclude *Client) {
	data, err := json.Marshal(LeftEvent{
		Type:     MessageTypeUserLeft,
		UserID:   result.UserID,
		UserName: result.UserName,
	})
	if err != nil {
		return
	}
	s.Broadcast(result.RoomKey, data, exclude)
}
