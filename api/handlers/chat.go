package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/research-collab/backend/internal/auth"
	"github.com/research-collab/backend/internal/chat"
	"github.com/research-collab/backend/internal/model"
	"github.com/research-collab/backend/internal/ws"
)

// ChatHandler handles HTTP requests for chat history and message management.
type ChatHandler struct {
	chatService *chat.Service
	wsService   *ws.Service
	resolver    *auth.Resolver
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *chat.Service, wsService *ws.Service, resolver *auth.Resolver) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		wsService:   wsService,
		resolver:    resolver,
	}
}

// requireIdentity resolves the request credential and rejects requests
// carrying no credential at all. REST chat endpoints, unlike the session
// endpoints, have no anonymous mode.
func (h *ChatHandler) requireIdentity(c *gin.Context) (auth.Identity, bool) {
	token := credentialToken(c)
	if token == "" {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Credential is required")
		return auth.Identity{}, false
	}

	identity, err := h.resolver.Resolve(token)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credential: "+err.Error())
		return auth.Identity{}, false
	}
	return identity, true
}

// GetHistory handles GET /api/chat/project/:id/messages - returns chat
// history for a project, newest first, with keyset pagination.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Project ID is required")
		return
	}

	if _, ok := h.requireIdentity(c); !ok {
		return
	}

	limit := chat.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := h.chatService.History(c.Request.Context(), projectID, limit, c.Query("before"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch chat history: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, history)
}

// DeleteMessage handles DELETE /api/chat/messages/:id - soft deletes a
// message (author only) and announces the deletion to the live room.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("id")
	if messageID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Message ID is required")
		return
	}

	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	msg, err := h.chatService.Delete(c.Request.Context(), messageID, identity.ID)
	if err != nil {
		if errors.Is(err, model.ErrMessageNotFound) {
			sendError(c, http.StatusNotFound, "MESSAGE_NOT_FOUND", "Message "+messageID+" not found")
			return
		}
		if errors.Is(err, model.ErrForbidden) {
			sendError(c, http.StatusForbidden, "FORBIDDEN", "Can only delete your own messages")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete message: "+err.Error())
		return
	}

	h.wsService.AnnounceMessageDeleted(msg.ProjectID, msg.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// GetStats handles GET /api/chat/project/:id/stats - returns aggregate chat
// statistics for a project.
func (h *ChatHandler) GetStats(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Project ID is required")
		return
	}

	if _, ok := h.requireIdentity(c); !ok {
		return
	}

	stats, err := h.chatService.Stats(c.Request.Context(), projectID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch chat stats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers the chat handler routes on a Gin router group.
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	chatGroup := rg.Group("/chat")
	{
		chatGroup.GET("/project/:id/messages", h.GetHistory)
		chatGroup.GET("/project/:id/stats", h.GetStats)
		chatGroup.DELETE("/messages/:id", h.DeleteMessage)
	}
}
