package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"meetspace-backend/pkg/constants"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of audit event
type EventType string

const (
	// Room lifecycle events
	EventRoomCreated EventType = "room_created"
	EventRoomEnded   EventType = "room_ended"

	// Roster events
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"
	EventHostChanged       EventType = "host_changed"

	// Media events
	EventScreenShareStarted EventType = "screen_share_started"
	EventScreenShareStopped EventType = "screen_share_stopped"

	// Chat events
	EventMessageSent EventType = "message_sent"
)

// Event represents an audit log entry
type Event struct {
	EventID       uuid.UUID  `json:"event_id"`
	RoomID        uuid.UUID  `json:"room_id"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	EventType     EventType  `json:"event_type"`
	IPAddress     string     `json:"ip_address,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	Success       bool       `json:"success"`
	ErrorCode     string     `json:"error_code,omitempty"`
	Details       string     `json:"details,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// AuditLogger handles audit logging
type AuditLogger struct {
	redisClient *redis.Client
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(redisClient *redis.Client) *AuditLogger {
	return &AuditLogger{
		redisClient: redisClient,
	}
}

// Log logs an audit event
func (al *AuditLogger) Log(ctx context.Context, event *Event) error {
	// Set timestamp
	event.Timestamp = time.Now().UTC()

	// Generate event ID if not set
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}

	// Serialize event to JSON
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	// Store in Redis list
	key := fmt.Sprintf("audit:events:%s", event.Timestamp.Format("2006-01-02"))
	member := fmt.Sprintf("%s:%s", event.EventID, eventJSON)

	err = al.redisClient.LPush(ctx, key, member).Err()
	if err != nil {
		return fmt.Errorf("failed to store audit event: %w", err)
	}

	// Set expiry for audit logs
	err = al.redisClient.Expire(ctx, key, constants.AuditLogRetention).Err()
	if err != nil {
		return fmt.Errorf("failed to set audit log expiry: %w", err)
	}

	return nil
}

// LogRoomCreated logs a room creation
func (al *AuditLogger) LogRoomCreated(ctx context.Context, roomID, hostID uuid.UUID, ipAddress, userAgent string) error {
	return al.Log(ctx, &Event{
		RoomID:        roomID,
		ParticipantID: &hostID,
		EventType:     EventRoomCreated,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Success:       true,
	})
}

// LogRoomEnded logs a room ending
func (al *AuditLogger) LogRoomEnded(ctx context.Context, roomID uuid.UUID, endedBy *uuid.UUID, reason string) error {
	return al.Log(ctx, &Event{
		RoomID:        roomID,
		ParticipantID: endedBy,
		EventType:     EventRoomEnded,
		Success:       true,
		Details:       reason,
	})
}

// LogJoin logs a participant joining a room
func (al *AuditLogger) LogJoin(ctx context.Context, roomID, participantID uuid.UUID, ipAddress, userAgent string) error {
	return al.Log(ctx, &Event{
		RoomID:        roomID,
		ParticipantID: &participantID,
		EventType:     EventParticipantJoined,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Success:       true,
	})
}

// LogLeave logs a participant leaving a room
func (al *AuditLogger) LogLeave(ctx context.Context, roomID, participantID uuid.UUID) error {
	return al.Log(ctx, &Event{
		RoomID:        roomID,
		ParticipantID: &participantID,
		EventType:     EventParticipantLeft,
		Success:       true,
	})
}

// LogScreenShare logs a screen share start or stop
func (al *AuditLogger) LogScreenShare(ctx context.Context, roomID, participantID uuid.UUID, started bool) error {
	eventType := EventScreenShareStopped
	if started {
		eventType = EventScreenShareStarted
	}
	return al.Log(ctx, &Event{
		RoomID:        roomID,
		ParticipantID: &participantID,
		EventType:     eventType,
		Success:       true,
	})
}

// GetEvents retrieves audit events for a room
func (al *AuditLogger) GetEvents(ctx context.Context, roomID uuid.UUID, limit int, offset int) ([]*Event, error) {
	// Get keys for all days in the retention range
	now := time.Now().UTC()
	keys := make([]string, 0)
	for i := 0; i < constants.AuditLogRetentionDays; i++ {
		date := now.AddDate(0, 0, -i)
		key := fmt.Sprintf("audit:events:%s", date.Format("2006-01-02"))
		keys = append(keys, key)
	}

	// Get events from Redis
	var events []*Event
	for _, key := range keys {
		members, err := al.redisClient.LRange(ctx, key, int64(offset), int64(offset+limit)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit events: %w", err)
		}

		for _, member := range members {
			var event Event
			err := json.Unmarshal([]byte(member), &event)
			if err != nil {
				continue
			}
			if event.RoomID == roomID {
				events = append(events, &event)
			}
		}
	}

	return events, nil
}

// GetEventsByType retrieves audit events by type
func (al *AuditLogger) GetEventsByType(ctx context.Context, eventType EventType, limit int, offset int) ([]*Event, error) {
	now := time.Now().UTC()
	keys := make([]string, 0)
	for i := 0; i < constants.AuditLogRetentionDays; i++ {
		date := now.AddDate(0, 0, -i)
		key := fmt.Sprintf("audit:events:%s", date.Format("2006-01-02"))
		keys = append(keys, key)
	}

	var events []*Event
	for _, key := range keys {
		members, err := al.redisClient.LRange(ctx, key, int64(offset), int64(offset+limit)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit events: %w", err)
		}

		for _, member := range members {
			var event Event
			err := json.Unmarshal([]byte(member), &event)
			if err != nil {
				continue
			}
			if event.EventType == eventType {
				events = append(events, &event)
			}
		}
	}

	return events, nil
}
