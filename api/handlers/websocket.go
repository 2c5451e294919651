package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/research-collab/backend/internal/auth"
	"github.com/research-collab/backend/internal/ws"
)

// WebSocketHandler handles the long-lived collaboration session endpoints.
type WebSocketHandler struct {
	wsService *ws.Service
	wsHandler *ws.Handler
	resolver  *auth.Resolver
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsService *ws.Service, wsHandler *ws.Handler, resolver *auth.Resolver) *WebSocketHandler {
	return &WebSocketHandler{
		wsService: wsService,
		wsHandler: wsHandler,
		resolver:  resolver,
	}
}

// Document handles GET /api/ws/document/:id - opens a document
// collaboration session.
func (h *WebSocketHandler) Document(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Document ID is required")
		return
	}

	identity, err := resolveIdentity(c, h.resolver)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credential: "+err.Error())
		return
	}

	if err := h.wsHandler.HandleDocument(c.Writer, c.Request, documentID, identity); err != nil {
		// Upgrade failures have already written a response.
		return
	}
}

// Chat handles GET /api/ws/chat/:id - opens a project chat session.
func (h *WebSocketHandler) Chat(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Project ID is required")
		return
	}

	identity, err := resolveIdentity(c, h.resolver)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credential: "+err.Error())
		return
	}

	if err := h.wsHandler.HandleChat(c.Writer, c.Request, projectID, identity); err != nil {
		return
	}
}

// Health handles GET /api/ws/health - reports active room and connection
// counts for observability.
func (h *WebSocketHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"active_rooms":      h.wsService.RoomCount(),
		"total_connections": h.wsService.ConnectionCount(),
	})
}

// RegisterRoutes registers the WebSocket handler routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/document/:id", h.Document)
	rg.GET("/ws/chat/:id", h.Chat)
	rg.GET("/ws/health", h.Health)
}
