package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"meetspace-backend/internal/database"
	"meetspace-backend/pkg/constants"
)

// PresenceRepository tracks per-room participant liveness in Redis. A
// participant whose heartbeat stops refreshing the key is considered gone
// once the TTL expires.
type PresenceRepository struct {
	client *database.RedisClient
}

// NewPresenceRepository creates a new PresenceRepository
func NewPresenceRepository(client *database.RedisClient) *PresenceRepository {
	return &PresenceRepository{client: client}
}

func presenceKey(roomID, participantID uuid.UUID) string {
	return fmt.Sprintf("presence:%s:%s", roomID, participantID)
}

func roomSetKey(roomID uuid.UUID) string {
	return fmt.Sprintf("presence:room:%s", roomID)
}

// MarkPresent marks a participant as present in a room
func (r *PresenceRepository) MarkPresent(ctx context.Context, roomID, participantID uuid.UUID) error {
	err := r.client.SafeSet(ctx, presenceKey(roomID, participantID), "present", constants.PresenceTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to mark present: %w", err)
	}

	// Add to the room's set for quick listing
	err = r.client.SafeSAdd(ctx, roomSetKey(roomID), participantID.String()).Err()
	if err != nil {
		return fmt.Errorf("failed to add to room presence set: %w", err)
	}

	return nil
}

// MarkGone removes a participant's presence on leave or disconnect
func (r *PresenceRepository) MarkGone(ctx context.Context, roomID, participantID uuid.UUID) error {
	err := r.client.SafeDel(ctx, presenceKey(roomID, participantID)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}

	err = r.client.SafeSRem(ctx, roomSetKey(roomID), participantID.String()).Err()
	if err != nil {
		return fmt.Errorf("failed to remove from room presence set: %w", err)
	}

	return nil
}

// IsPresent checks whether a participant's heartbeat is still live
func (r *PresenceRepository) IsPresent(ctx context.Context, roomID, participantID uuid.UUID) (bool, error) {
	exists, err := r.client.SafeExists(ctx, presenceKey(roomID, participantID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}

	return exists > 0, nil
}

// Heartbeat refreshes a participant's presence TTL
func (r *PresenceRepository) Heartbeat(ctx context.Context, roomID, participantID uuid.UUID) error {
	err := r.client.SafeExpire(ctx, presenceKey(roomID, participantID), constants.PresenceTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}

	return nil
}

// GetPresentParticipants retrieves the participant ids with live heartbeats
// in a room. Entries in the set whose TTL key expired are pruned lazily.
func (r *PresenceRepository) GetPresentParticipants(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	idStrs, err := r.client.SafeSMembers(ctx, roomSetKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room presence: %w", err)
	}

	present := make([]uuid.UUID, 0, len(idStrs))
	for _, idStr := range idStrs {
		participantID, err := uuid.Parse(idStr)
		if err != nil {
			continue // Skip invalid UUIDs
		}
		live, err := r.IsPresent(ctx, roomID, participantID)
		if err != nil {
			return nil, err
		}
		if !live {
			_ = r.client.SafeSRem(ctx, roomSetKey(roomID), idStr).Err()
			continue
		}
		present = append(present, participantID)
	}

	return present, nil
}

// ClearRoom drops all presence state of a closed room
func (r *PresenceRepository) ClearRoom(ctx context.Context, roomID uuid.UUID) error {
	idStrs, err := r.client.SafeSMembers(ctx, roomSetKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get room presence: %w", err)
	}

	for _, idStr := range idStrs {
		if participantID, err := uuid.Parse(idStr); err == nil {
			_ = r.client.SafeDel(ctx, presenceKey(roomID, participantID)).Err()
		}
	}

	if err := r.client.SafeDel(ctx, roomSetKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to clear room presence set: %w", err)
	}

	return nil
}

// IsDegraded returns true if Redis is in degraded mode
func (r *PresenceRepository) IsDegraded() bool {
	return r.client.IsDegraded()
}
