package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse mirrors the api package's error shape. It is redefined here to
// avoid an import cycle between middleware and api.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AuthMiddleware verifies Firebase ID tokens on protected routes.
type AuthMiddleware struct {
	authClient *auth.Client
	logger     *zap.Logger
}

// NewAuthMiddleware creates an AuthMiddleware. The auth client is a hard
// dependency; protected routes cannot function without it.
func NewAuthMiddleware(authClient *auth.Client, logger *zap.Logger) *AuthMiddleware {
	if authClient == nil {
		panic("middleware: Firebase Auth client is required for AuthMiddleware")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{authClient: authClient, logger: logger}
}

// VerifyToken checks the Authorization header for a valid Firebase ID token
// and, on success, stores the caller's identity claims in the Gin context
// under userID, userEmail, userDisplayName and userPhotoURL.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}

		token, err := m.authClient.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			// Details stay server-side; the client gets a generic message.
			m.logger.Warn("ID token verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		c.Set("userID", token.UID)
		if email, ok := token.Claims["email"].(string); ok {
			c.Set("userEmail", email)
		}
		if name, ok := token.Claims["name"].(string); ok {
			c.Set("userDisplayName", name)
		}
		if picture, ok := token.Claims["picture"].(string); ok {
			c.Set("userPhotoURL", picture)
		}

		c.Next()
	}
}
