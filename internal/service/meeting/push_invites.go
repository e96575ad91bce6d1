package meeting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/logger"
	"meetspace-backend/pkg/push"
)

// PushInviteSender delivers meeting invitations through the push
// notification service. Implements InviteSender.
type PushInviteSender struct {
	service *push.Service
}

// NewPushInviteSender creates a push-backed invite sender
func NewPushInviteSender(service *push.Service) *PushInviteSender {
	return &PushInviteSender{service: service}
}

// SendMeetingInvite notifies the invitees that the host started a meeting.
// Delivery is best-effort; failures are logged and swallowed.
func (s *PushInviteSender) SendMeetingInvite(ctx context.Context, room *domain.MeetingRoom, host domain.Participant, inviteeIDs []uuid.UUID) {
	data := &push.MeetingInviteData{
		RoomID:      room.ID,
		RoomName:    room.Name,
		MeetingCode: room.MeetingCode,
		HostID:      host.ID,
		HostName:    host.Name,
		Timestamp:   time.Now().Unix(),
	}

	if err := s.service.SendMeetingInvite(ctx, data, inviteeIDs); err != nil {
		logger.Warn("meeting invite delivery failed",
			zap.String("room_id", room.ID.String()),
			zap.Int("invitee_count", len(inviteeIDs)),
			zap.Error(err))
	}
}
