package push

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetspace-backend/pkg/logger"
	"meetspace-backend/pkg/push"
	"meetspace-backend/pkg/response"
)

// Handler handles push notification HTTP requests
type Handler struct {
	pushService *push.Service
}

// NewHandler creates a new push notification handler
func NewHandler(pushService *push.Service) *Handler {
	return &Handler{
		pushService: pushService,
	}
}

// RegisterTokenRequest represents request to register a push token
type RegisterTokenRequest struct {
	Token    string         `json:"token" binding:"required"`
	Type     push.TokenType `json:"type" binding:"required,oneof=fcm web"`
	DeviceID string         `json:"device_id"`
	Platform string         `json:"platform"` // ios, android, web
}

// RegisterToken registers a new push notification token for the authenticated user
// POST /v1/push/tokens
func (h *Handler) RegisterToken(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if req.Platform != "" && req.Platform != "ios" && req.Platform != "android" && req.Platform != "web" {
		response.ValidationError(c, "Invalid platform. Must be 'ios', 'android', or 'web'")
		return
	}

	token := &push.Token{
		UserID:    userID,
		Token:     req.Token,
		Type:      req.Type,
		DeviceID:  req.DeviceID,
		Platform:  req.Platform,
		Active:    true,
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}

	if err := h.pushService.RegisterToken(c.Request.Context(), token); err != nil {
		logger.Error("Failed to register push token",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.InternalError(c, "Failed to register token")
		return
	}

	logger.Info("Push token registered",
		zap.String("user_id", userID.String()),
		zap.String("token_type", string(req.Type)),
		zap.String("platform", req.Platform))

	response.Success(c, http.StatusOK, gin.H{
		"message":  "Token registered successfully",
		"token_id": token.ID,
	})
}

// UnregisterAllTokens removes all push notification tokens for the authenticated user
// DELETE /v1/push/tokens
func (h *Handler) UnregisterAllTokens(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.pushService.UnregisterAllTokens(c.Request.Context(), userID); err != nil {
		logger.Error("Failed to unregister push tokens",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.InternalError(c, "Failed to unregister tokens")
		return
	}

	logger.Info("All push tokens unregistered",
		zap.String("user_id", userID.String()))

	response.Success(c, http.StatusOK, gin.H{
		"message": "All tokens unregistered successfully",
	})
}

// GetTokens returns all push notification tokens for the authenticated user
// GET /v1/push/tokens
func (h *Handler) GetTokens(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	tokens, err := h.pushService.GetTokensByUserID(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to get push tokens",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.InternalError(c, "Failed to get tokens")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokens,
		"count":  len(tokens),
	})
}

// TestNotificationRequest represents request to send a test notification
type TestNotificationRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// TestNotification sends a test push notification to the authenticated user's devices
// POST /v1/push/test
func (h *Handler) TestNotification(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req TestNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	notification := &push.Notification{
		Title:    req.Title,
		Body:     req.Body,
		Priority: "normal",
		Sound:    "default",
		Data: map[string]string{
			"type": "test",
		},
	}

	if err := h.pushService.SendCustomNotification(c.Request.Context(), notification, []uuid.UUID{userID}); err != nil {
		logger.Error("Failed to send test notification",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.InternalError(c, "Failed to send test notification")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Test notification sent successfully",
	})
}

// callerID extracts the authenticated user id set by the auth middleware
func callerID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, false
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}

	return userID, true
}
