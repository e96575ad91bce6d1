package meeting

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetspace-backend/internal/domain"
	"meetspace-backend/internal/service/meeting"
	"meetspace-backend/pkg/cache"
	"meetspace-backend/pkg/constants"
	"meetspace-backend/pkg/errors"
	"meetspace-backend/pkg/pagination"
	"meetspace-backend/pkg/response"
	"meetspace-backend/pkg/sanitize"
)

// Handler handles meeting room HTTP requests
type Handler struct {
	coordinator *meeting.Coordinator

	// codeCache shortcuts repeat meeting-code lookups from join screens
	codeCache *cache.MemoryCache
}

// NewHandler creates a new meeting handler
func NewHandler(coordinator *meeting.Coordinator) *Handler {
	return &Handler{
		coordinator: coordinator,
		codeCache:   cache.NewMemoryCache(30*time.Second, 1000),
	}
}

// CreateRoomRequest represents room creation request
type CreateRoomRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	DisplayName string   `json:"display_name" binding:"required,max=100"`
	AvatarURL   *string  `json:"avatar_url,omitempty"`
	InviteeIDs  []string `json:"invitee_ids,omitempty"`
}

// JoinRoomRequest represents a join request
type JoinRoomRequest struct {
	DisplayName string  `json:"display_name" binding:"required,max=100"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// UpdateFlagsRequest is a partial update of the caller's toggleable flags
type UpdateFlagsRequest struct {
	IsMuted     *bool `json:"is_muted,omitempty"`
	IsCameraOff *bool `json:"is_camera_off,omitempty"`
}

// BindMediaRequest selects a media track to bind
type BindMediaRequest struct {
	Kind string `json:"kind" binding:"required,oneof=camera microphone"`
}

// SendMessageRequest represents a chat message
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

// CreateRoom starts a new meeting with the caller as host
// POST /v1/meetings
func (h *Handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	inviteeIDs := make([]uuid.UUID, len(req.InviteeIDs))
	for i, idStr := range req.InviteeIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			response.ValidationError(c, "Invalid invitee ID: "+idStr)
			return
		}
		inviteeIDs[i] = id
	}

	host := domain.Participant{
		ID:        userID,
		Name:      sanitize.StripControlCharacters(req.DisplayName),
		AvatarURL: req.AvatarURL,
	}

	snapshot, err := h.coordinator.CreateRoom(c.Request.Context(), sanitize.StripControlCharacters(req.Name), host, inviteeIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, snapshot)
}

// JoinRoom adds the caller to an active room
// POST /v1/meetings/:id/join
func (h *Handler) JoinRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	p := domain.Participant{
		ID:        userID,
		Name:      sanitize.StripControlCharacters(req.DisplayName),
		AvatarURL: req.AvatarURL,
	}

	snapshot, err := h.coordinator.Join(c.Request.Context(), roomID, p)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// LeaveRoom removes the caller from the room
// POST /v1/meetings/:id/leave
func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.coordinator.Leave(c.Request.Context(), roomID, userID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Left meeting",
		"room_id": roomID,
	})
}

// EndRoom ends the meeting for everyone. Host only.
// POST /v1/meetings/:id/end
func (h *Handler) EndRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.coordinator.EndRoom(c.Request.Context(), roomID, userID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Meeting ended",
		"room_id": roomID,
	})
}

// ToggleScreenShare starts or stops the caller's screen share
// POST /v1/meetings/:id/screenshare
func (h *Handler) ToggleScreenShare(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	sharing, err := h.coordinator.ToggleScreenShare(c.Request.Context(), roomID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"sharing": sharing,
		"room_id": roomID,
	})
}

// UpdateFlags applies a partial update of the caller's mute/camera flags
// PATCH /v1/meetings/:id/flags
func (h *Handler) UpdateFlags(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	var req UpdateFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	update := domain.FlagUpdate{
		IsMuted:     req.IsMuted,
		IsCameraOff: req.IsCameraOff,
	}

	if err := h.coordinator.UpdateFlags(c.Request.Context(), roomID, userID, update); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Flags updated",
		"room_id": roomID,
	})
}

// BindMedia acquires and binds a camera or microphone track for the caller.
// Screen share goes through ToggleScreenShare instead.
// POST /v1/meetings/:id/media
func (h *Handler) BindMedia(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	var req BindMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.coordinator.BindMedia(c.Request.Context(), roomID, userID, domain.MediaKind(req.Kind)); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Media bound",
		"kind":    req.Kind,
	})
}

// UnbindMedia releases one of the caller's media tracks. Idempotent.
// DELETE /v1/meetings/:id/media/:kind
func (h *Handler) UnbindMedia(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	kind := domain.MediaKind(c.Param("kind"))
	if !kind.Valid() {
		response.ValidationError(c, "Invalid media kind")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.coordinator.UnbindMedia(c.Request.Context(), roomID, userID, kind); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Media unbound",
		"kind":    string(kind),
	})
}

// SendMessage appends a chat message to the room
// POST /v1/meetings/:id/messages
func (h *Handler) SendMessage(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}

	content := sanitize.StripControlCharacters(req.Content)
	if !sanitize.ValidateStringLength(content, 1, constants.MaxMessageLength) {
		response.ValidationError(c, "Message content is empty or too long")
		return
	}

	msg, err := h.coordinator.SendChat(c.Request.Context(), roomID, userID, content)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, msg)
}

// GetMessages returns a page of the room's chat history
// GET /v1/meetings/:id/messages?page=1&limit=50
func (h *Handler) GetMessages(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	params, err := pagination.ParsePaginationParams(
		c.Query("page"),
		c.Query("limit"),
		"", "asc",
	)
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	messages, total, err := h.coordinator.HistoryPage(roomID, params.Limit, params.Offset)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, pagination.BuildPaginationResponse(params, int64(total), messages))
}

// GetRoom returns a point-in-time snapshot of the room
// GET /v1/meetings/:id
func (h *Handler) GetRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	snapshot, err := h.coordinator.Snapshot(roomID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// ResolveCode maps a meeting code to its room
// GET /v1/meetings/code/:code
func (h *Handler) ResolveCode(c *gin.Context) {
	code := c.Param("code")

	if cached, found := h.codeCache.Get(code); found {
		if roomID, ok := cached.(uuid.UUID); ok {
			response.Success(c, http.StatusOK, gin.H{"room_id": roomID})
			return
		}
	}

	roomID, err := h.coordinator.ResolveCode(code)
	if err != nil {
		writeError(c, err)
		return
	}

	h.codeCache.Set(code, roomID, 0)
	response.Success(c, http.StatusOK, gin.H{"room_id": roomID})
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

// roomParam parses the :id path parameter
func roomParam(c *gin.Context) (uuid.UUID, bool) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return uuid.Nil, false
	}
	return roomID, true
}

// writeError maps coordinator errors onto the response envelope
func writeError(c *gin.Context, err error) {
	appErr := errors.GetAppError(err)
	response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}
