package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/research-collab/backend/internal/auth"
	"github.com/research-collab/backend/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Document sync payloads can
	// carry whole-document state, so this is far above chat frame sizes.
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// DocRoomKey returns the room key for a document collaboration room.
// The kind prefix keeps document and chat rooms for the same entity apart.
func DocRoomKey(documentID string) string {
	return "doc:" + documentID
}

// ChatRoomKey returns the room key for a project chat room.
func ChatRoomKey(projectID string) string {
	return "chat:" + projectID
}

// Handler runs the per-connection protocol loops for the two session
// endpoints and dispatches frames to the broadcast engine and, for chat,
// to the message store.
type Handler struct {
	service *Service
	store   MessageStore
}

// NewHandler creates a new protocol handler.
func NewHandler(service *Service, store MessageStore) *Handler {
	return &Handler{
		service: service,
		store:   store,
	}
}

// HandleDocument upgrades the connection and runs a document collaboration
// session in room doc:<documentID> for the resolved identity.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request, documentID string, identity auth.Identity) error {
	roomKey := DocRoomKey(documentID)
	return h.handleSession(w, r, roomKey, identity, func(c *Client) {
		h.readDocument(c, roomKey)
	})
}

// HandleChat upgrades the connection and runs a project chat session in
// room chat:<projectID> for the resolved identity.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request, projectID string, identity auth.Identity) error {
	roomKey := ChatRoomKey(projectID)
	return h.handleSession(w, r, roomKey, identity, func(c *Client) {
		h.readChat(c, projectID, roomKey)
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, roomKey string, identity auth.Identity, readLoop func(*Client)) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, identity)

	if err := h.service.Connect(roomKey, client); err != nil {
		conn.Close()
		return err
	}

	go h.writePump(client)
	go readLoop(client)

	return nil
}

// readDocument is the receive loop for document collaboration sessions.
// Frames that do not parse as a typed envelope are opaque content-merge
// payloads and are relayed verbatim to the rest of the room.
func (h *Handler) readDocument(client *Client, roomKey string) {
	defer func() {
		h.service.Disconnect(client)
		client.Conn().Close()
	}()

	h.configureRead(client)

	for {
		mt, raw, err := client.Conn().ReadMessage()
		if err != nil {
			logReadError(err)
			break
		}

		if mt == websocket.BinaryMessage {
			// Binary updates from the content-merge layer are opaque:
			// relay unchanged, with the same opcode, sender excluded.
			h.service.Relay(roomKey, mt, raw, client)
			continue
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
			// Unparseable text frames are treated the same way.
			h.service.Relay(roomKey, mt, raw, client)
			continue
		}

		switch frame.Type {
		case MessageTypeSync:
			// Sync payloads are never interpreted or transformed.
			h.service.Relay(roomKey, mt, raw, client)
		case MessageTypeAwareness:
			h.relayAwareness(client, roomKey, frame)
		case MessageTypeCursor:
			h.relayCursor(client, roomKey, frame)
		case MessageTypePing:
			h.sendPong(client)
		default:
			log.Printf("Unknown document frame type %q from user %s", frame.Type, client.UserID())
		}
	}
}

func (h *Handler) relayAwareness(client *Client, roomKey string, frame Frame) {
	data, err := json.Marshal(AwarenessEvent{
		Type:     MessageTypeAwareness,
		UserID:   client.UserID(),
		UserName: client.UserName(),
		Data:     frame.Data,
	})
	if err != nil {
		return
	}
	h.service.Broadcast(roomKey, data, client)
}

func (h *Handler) relayCursor(client *Client, roomKey string, frame Frame) {
	data, err := json.Marshal(CursorEvent{
		Type:      MessageTypeCursor,
		UserID:    client.UserID(),
		UserName:  client.UserName(),
		Position:  frame.Position,
		Selection: frame.Selection,
	})
	if err != nil {
		return
	}
	h.service.Broadcast(roomKey, data, client)
}

// readChat is the receive loop for project chat sessions.
func (h *Handler) readChat(client *Client, projectID, roomKey string) {
	defer func() {
		h.service.Disconnect(client)
		client.Conn().Close()
	}()

	h.configureRead(client)

	for {
		_, raw, err := client.Conn().ReadMessage()
		if err != nil {
			logReadError(err)
			break
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("Dropping malformed chat frame from user %s: %v", client.UserID(), err)
			continue
		}

		switch frame.Type {
		case MessageTypeChat:
			h.handleChatMessage(client, projectID, roomKey, frame)
		case MessageTypeTyping:
			h.relayTyping(client, roomKey, frame)
		case MessageTypePing:
			h.sendPong(client)
		default:
			log.Printf("Unknown chat frame type %q from user %s", frame.Type, client.UserID())
		}
	}
}

// handleChatMessage persists a chat message and broadcasts the
// authoritative copy to the whole room, sender included, so the sender's
// UI reconciles against the server-assigned id and timestamp.
func (h *Handler) handleChatMessage(client *Client, projectID, roomKey string, frame Frame) {
	msg, err := h.store.Append(context.Background(), projectID, client.UserID(), client.UserName(), frame.Content)
	if err != nil {
		if errors.Is(err, model.ErrEmptyMessage) {
			return
		}
		log.Printf("Failed to persist chat message from user %s: %v", client.UserID(), err)
		h.sendError(client, "failed to send message")
		return
	}

	data, err := json.Marshal(ChatEvent{
		Type: MessageTypeChat,
		Data: ChatPayload{
			ID:        msg.ID,
			RoomID:    msg.ProjectID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.Format(time.RFC3339Nano),
			Edited:    msg.Edited,
			Deleted:   msg.Deleted,
		},
	})
	if err != nil {
		log.Printf("Failed to marshal chat event: %v", err)
		return
	}

	h.service.Broadcast(roomKey, data, nil)
}

func (h *Handler) relayTyping(client *Client, roomKey string, frame Frame) {
	data, err := json.Marshal(TypingEvent{
		Type:     MessageTypeTyping,
		UserID:   client.UserID(),
		UserName: client.UserName(),
		IsTyping: frame.IsTyping,
	})
	if err != nil {
		return
	}
	h.service.Broadcast(roomKey, data, client)
}

func (h *Handler) sendPong(client *Client) {
	data, err := json.Marshal(PongEvent{Type: MessageTypePong})
	if err != nil {
		return
	}
	client.Send(data)
}

func (h *Handler) sendError(client *Client, message string) {
	data, err := json.Marshal(ErrorEvent{Type: MessageTypeError, Error: message})
	if err != nil {
		return
	}
	client.Send(data)
}

func (h *Handler) configureRead(client *Client) {
	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}

func logReadError(err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		log.Printf("WebSocket read error: %v", err)
	}
}

// writePump pumps queued messages to the WebSocket connection and sends
// protocol-level pings on a ticker.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case frame, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The client was closed
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each message goes in its own frame, with its queued
			// opcode, so relayed binary updates stay binary.
			if err := client.Conn().WriteMessage(frame.messageType, frame.data); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(queued.messageType, queued.data); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
