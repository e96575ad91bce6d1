package meeting

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/constants"
	"meetspace-backend/pkg/pagination"
	"meetspace-backend/pkg/response"
)

// RoomArchive reads archived room records. Live rooms are served by the
// coordinator; these queries cover rooms that have already closed.
type RoomArchive interface {
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.MeetingRoom, error)
	GetParticipantRooms(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*domain.MeetingRoom, error)
	GetAttendance(ctx context.Context, roomID uuid.UUID) ([]*domain.Attendance, error)
}

// ChatArchive reads archived chat messages of a room
type ChatArchive interface {
	GetRoomHistory(ctx context.Context, roomID uuid.UUID, startedAt, endedAt time.Time, limit int) ([]*domain.ChatMessage, error)
}

// HistoryHandler serves reads against the room and chat archives
type HistoryHandler struct {
	rooms RoomArchive
	chat  ChatArchive
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(rooms RoomArchive, chat ChatArchive) *HistoryHandler {
	return &HistoryHandler{
		rooms: rooms,
		chat:  chat,
	}
}

// GetParticipantHistory returns the caller's past meetings, most recent first
// GET /v1/meetings/history?page=1&limit=20
func (h *HistoryHandler) GetParticipantHistory(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	params, err := pagination.ParsePaginationParams(
		c.Query("page"),
		c.Query("limit"),
		"", "desc",
	)
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	rooms, err := h.rooms.GetParticipantRooms(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		response.InternalError(c, "Failed to load meeting history")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"meetings": rooms,
		"page":     params.Page,
		"limit":    params.Limit,
	})
}

// GetAttendance returns the participation records of a room in join order
// GET /v1/meetings/:id/attendance
func (h *HistoryHandler) GetAttendance(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	attendance, err := h.rooms.GetAttendance(c.Request.Context(), roomID)
	if err != nil {
		response.InternalError(c, "Failed to load attendance")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"room_id":    roomID,
		"attendance": attendance,
	})
}

// GetArchivedRoom returns the archived record of a room together with its
// persisted chat history. Serves rooms that have already closed; live rooms
// are read through the snapshot endpoint.
// GET /v1/meetings/:id/archive
func (h *HistoryHandler) GetArchivedRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	room, err := h.rooms.GetByID(c.Request.Context(), roomID)
	if err != nil {
		response.NotFound(c, "Meeting room not found in archive")
		return
	}

	// Open-ended rooms (crash before close) get a bounded window
	endedAt := time.Now().UTC()
	if room.EndedAt != nil {
		endedAt = *room.EndedAt
	}

	messages, err := h.chat.GetRoomHistory(c.Request.Context(), roomID, room.StartedAt, endedAt, constants.MaxPageSize)
	if err != nil {
		response.InternalError(c, "Failed to load archived messages")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"room":     room,
		"messages": messages,
	})
}
