package meeting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meetspace-backend/internal/domain"
)

// Notifier consumes the coordinator's state-change notifications. Exactly
// one notification is emitted per successful mutating operation, after the
// whole mutation has been applied: observers never see partial state.
// Implementations are called with the room serialized and must not block;
// hand the event to a channel or goroutine for slow consumers.
type Notifier interface {
	// RoomChanged delivers a coalesced snapshot after a roster, media,
	// or lifecycle mutation.
	RoomChanged(snapshot *domain.RoomSnapshot)

	// ChatAppended delivers a newly appended chat message.
	ChatAppended(roomID uuid.UUID, message domain.ChatMessage)
}

// RoomArchiver persists room lifecycle records as a write-behind side
// effect. Failures are logged and never surfaced to the mutating caller;
// in-memory correctness does not depend on the archive.
type RoomArchiver interface {
	SaveRoom(ctx context.Context, room *domain.MeetingRoom) error
	RecordJoin(ctx context.Context, roomID uuid.UUID, participant domain.Participant) error
	RecordLeave(ctx context.Context, roomID, participantID uuid.UUID, leftAt time.Time) error
}

// ChatArchiver persists chat messages write-behind. SaveMessage returns
// the commit timestamp used to resolve the message's pending write marker.
type ChatArchiver interface {
	SaveMessage(ctx context.Context, message *domain.ChatMessage) (time.Time, error)
}

// InviteSender notifies invited users that a meeting started. Delivery is
// best-effort; implementations swallow and log their own errors.
type InviteSender interface {
	SendMeetingInvite(ctx context.Context, room *domain.MeetingRoom, host domain.Participant, inviteeIDs []uuid.UUID)
}
