package ws

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/research-collab/backend/internal/auth"
)

// presenceColors is the palette participant colors are drawn from; the
// first entry matches the client's default accent color.
var presenceColors = []string{
	"#3b82f6", "#ef4444", "#10b981", "#f59e0b",
	"#8b5cf6", "#ec4899", "#14b8a6", "#f97316",
}

// colorFor deterministically picks a presence color for a user ID so a
// participant keeps the same color across reconnects.
func colorFor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return presenceColors[h.Sum32()%uint32(len(presenceColors))]
}

// outFrame is one queued outbound WebSocket frame. The opcode travels
// with the payload so relayed binary updates keep their frame type.
type outFrame struct {
	messageType int
	data        []byte
}

// Client represents one live WebSocket connection of a participant.
type Client struct {
	conn        *websocket.Conn
	userID      string
	userName    string
	color       string
	connectedAt time.Time
	send        chan outFrame
	mu          sync.Mutex
	closed      bool
}

// NewClient creates a new client for an upgraded connection.
func NewClient(conn *websocket.Conn, identity auth.Identity) *Client {
	return &Client{
		conn:        conn,
		userID:      identity.ID,
		userName:    identity.Name,
		color:       colorFor(identity.ID),
		connectedAt: time.Now(),
		send:        make(chan outFrame, 256),
	}
}

// Send queues a text frame for delivery to the client. It never blocks: a
// full buffer or a closed client reports delivery failure, and a full
// buffer additionally closes the client so the caller can evict it.
func (c *Client) Send(data []byte) bool {
	return c.SendFrame(websocket.TextMessage, data)
}

// SendFrame queues a frame with an explicit opcode, preserving the frame
// type of relayed payloads. Same non-blocking semantics as Send.
func (c *Client) SendFrame(messageType int, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- outFrame{messageType: messageType, data: data}:
		return true
	default:
		// Buffer full: the peer is too slow or gone.
		c.closeLocked()
		return false
	}
}

// Close closes the client's send channel. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// UserID returns the participant identity behind this connection.
func (c *Client) UserID() string {
	return c.userID
}

// UserName returns the participant's display name.
func (c *Client) UserName() string {
	return c.userName
}

// Color returns the participant's presence color.
func (c *Client) Color() string {
	return c.color
}

// ConnectedAt returns when this connection was established.
func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the outbound channel drained by the write pump.
func (c *Client) SendChan() <-chan outFrame {
	return c.send
}
