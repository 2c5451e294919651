package ws

import "encoding/json"

// MessageType represents the type discriminator of a WebSocket frame.
type MessageType string

const (
	// Client -> Server frame types
	MessageTypeSync   MessageType = "sync"
	MessageTypeCursor MessageType = "cursor"
	MessageTypeChat   MessageType = "message"
	MessageTypeTyping MessageType = "typing"
	MessageTypePing   MessageType = "ping"

	// Bidirectional
	MessageTypeAwareness MessageType = "awareness"

	// Server -> Client frame types
	MessageTypePong           MessageType = "pong"
	MessageTypeUserJoined     MessageType = "user_joined"
	MessageTypeUserLeft       MessageType = "user_left"
	MessageTypePresence       MessageType = "presence"
	MessageTypeError          MessageType = "error"
	MessageTypeMessageDeleted MessageType = "message_deleted"
)

// Frame is the inbound client message envelope. Type-specific fields are
// kept as raw JSON so sync/awareness payloads pass through uninterpreted.
type Frame struct {
	Type      MessageType     `json:"type"`
	Content   string          `json:"content,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Position  json.RawMessage `json:"position,omitempty"`
	Selection json.RawMessage `json:"selection,omitempty"`
	IsTyping  bool            `json:"is_typing,omitempty"`
}

// JoinedEvent announces a new participant to the rest of the room.
type JoinedEvent struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	UserName  string      `json:"user_name"`
	UserColor string      `json:"user_color,omitempty"`
}

// LeftEvent announces that a participant's last connection left the room.
type LeftEvent struct {
	Type     MessageType `json:"type"`
	UserID   string      `json:"user_id"`
	UserName string      `json:"user_name"`
}

// PresenceEvent carries the current room presence to a new joiner.
type PresenceEvent struct {
	Type  MessageType              `json:"type"`
	Users map[string]PresenceEntry `json:"users"`
}

// AwarenessEvent re-wraps an awareness payload with the sender's identity.
type AwarenessEvent struct {
	Type     MessageType     `json:"type"`
	UserID   string          `json:"user_id"`
	UserName string          `json:"user_name"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// CursorEvent re-wraps a cursor update with the sender's identity.
type CursorEvent struct {
	Type      MessageType     `json:"type"`
	UserID    string          `json:"user_id"`
	UserName  string          `json:"user_name"`
	Position  json.RawMessage `json:"position,omitempty"`
	Selection json.RawMessage `json:"selection,omitempty"`
}

// TypingEvent relays a typing indicator to the rest of the room.
type TypingEvent struct {
	Type     MessageType `json:"type"`
	UserID   string      `json:"user_id"`
	UserName string      `json:"user_name"`
	IsTyping bool        `json:"is_typing"`
}

// ChatPayload is the authoritative server copy of a chat message.
type ChatPayload struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Edited    bool   `json:"edited"`
	Deleted   bool   `json:"deleted"`
}

// ChatEvent broadcasts a persisted chat message to the room, sender included.
type ChatEvent struct {
	Type MessageType `json:"type"`
	Data ChatPayload `json:"data"`
}

// DeletedEvent announces the soft deletion of a chat message.
type DeletedEvent struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
}

// PongEvent answers a protocol-level ping frame.
type PongEvent struct {
	Type MessageType `json:"type"`
}

// ErrorEvent is sent to a single client when its own request failed.
type ErrorEvent struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}
