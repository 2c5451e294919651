// Package handlers provides HTTP API request handlers.
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/research-collab/backend/internal/auth"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// credentialToken extracts the bearer token from the Authorization header
// or, for WebSocket handshakes where headers are awkward, from the token
// query parameter.
func credentialToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// resolveIdentity resolves the request credential to an identity. A missing
// credential yields an anonymous guest identity; an invalid one fails.
func resolveIdentity(c *gin.Context, resolver *auth.Resolver) (auth.Identity, error) {
	return resolver.Resolve(credentialToken(c))
}
