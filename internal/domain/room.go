package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomState is the lifecycle state of a meeting room
type RoomState string

const (
	// RoomStateCreated indicates the room object exists but only the creator is present
	RoomStateCreated RoomState = "created"

	// RoomStateActive indicates the room accepts join/leave/flag/chat/media intents
	RoomStateActive RoomState = "active"

	// RoomStateEnding indicates the room is shutting down; no new joins accepted
	RoomStateEnding RoomState = "ending"

	// RoomStateClosed is terminal; the record is retained for audit only
	RoomStateClosed RoomState = "closed"
)

// CanTransitionTo reports whether the state machine permits moving to next
func (s RoomState) CanTransitionTo(next RoomState) bool {
	switch s {
	case RoomStateCreated:
		return next == RoomStateActive || next == RoomStateEnding
	case RoomStateActive:
		return next == RoomStateEnding
	case RoomStateEnding:
		return next == RoomStateClosed
	}
	return false
}

// AcceptsIntents reports whether the room still accepts mutating intents
func (s RoomState) AcceptsIntents() bool {
	return s == RoomStateCreated || s == RoomStateActive
}

// MeetingRoom represents a single meeting session scoping participants,
// chat, and media state
type MeetingRoom struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	MeetingCode string     `json:"meeting_code"` // external-facing join token, unique per active room
	HostID      uuid.UUID  `json:"host_id"`
	State       RoomState  `json:"state"`
	StartedAt   time.Time  `json:"started_at"` // immutable after creation
	EndedAt     *time.Time `json:"ended_at,omitempty"`

	// Participants are kept in join order
	Participants []Participant `json:"participants"`
}

// Attendance is the archived participation record of one participant in
// one room
type Attendance struct {
	RoomID        uuid.UUID  `json:"room_id"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	DisplayName   string     `json:"display_name"`
	IsHost        bool       `json:"is_host"`
	JoinedAt      time.Time  `json:"joined_at"`
	LeftAt        *time.Time `json:"left_at,omitempty"`
}

// RoomSnapshot is an immutable point-in-time view of room state delivered
// to observers. Version increases by one per applied mutation, so observers
// can detect stale or out-of-order deliveries.
type RoomSnapshot struct {
	Room           MeetingRoom `json:"room"`
	ScreenSharerID *uuid.UUID  `json:"screen_sharer_id,omitempty"`
	Version        uint64      `json:"version"`
	TakenAt        time.Time   `json:"taken_at"`
}
