package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readu-app-go/internal/core"
	"readu-app-go/internal/models"
)

// AuthHandler handles authentication-adjacent API endpoints.
type AuthHandler struct {
	userService  core.UserService
	auditService core.AuditService
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(us core.UserService, as core.AuditService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{userService: us, auditService: as, logger: logger}
}

// InitializeUserProfile handles POST /api/v1/users/initialize. Clients call
// it after a Firebase sign-in or sign-up so a backend profile exists for the
// authenticated UID. Identity fields come from the verified token claims the
// auth middleware placed in the context.
func (h *AuthHandler) InitializeUserProfile(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: User ID not found in context"})
		return
	}

	email := c.GetString("userEmail")
	displayName := c.GetString("userDisplayName")
	photoURL := c.GetString("userPhotoURL")

	user, created, err := h.userService.GetOrCreate(c.Request.Context(), userID, email, displayName, photoURL)
	if err != nil {
		h.logger.Error("failed to initialize user profile", zap.String("userId", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to initialize user profile", Details: err.Error()})
		return
	}

	if created {
		if h.auditService != nil {
			if err := h.auditService.CreateAuditLog(c.Request.Context(), models.AuditLog{
				UserID: userID,
				Action: "USER_INITIALIZE",
			}); err != nil {
				h.logger.Warn("failed to audit profile creation", zap.Error(err))
			}
		}
		c.JSON(http.StatusCreated, user)
		return
	}
	c.JSON(http.StatusOK, user)
}
