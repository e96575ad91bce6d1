package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/logger"
)

// TrackAllocator provisions media track slots on the SFU for participants.
// Track negotiation with the actual media plane happens out of band; the
// allocator hands out the track identity the client publishes on and keeps
// an inventory so orphaned tracks can be reclaimed.
type TrackAllocator struct {
	mu     sync.Mutex
	tracks map[string]uuid.UUID // track id -> owning participant
}

// NewTrackAllocator creates an allocator with an empty inventory
func NewTrackAllocator() *TrackAllocator {
	return &TrackAllocator{
		tracks: make(map[string]uuid.UUID),
	}
}

// Acquire provisions a new track slot for the participant. Honors ctx
// cancellation so a caller that gave up does not leak a slot.
func (a *TrackAllocator) Acquire(ctx context.Context, participantID uuid.UUID, kind domain.MediaKind) (domain.StreamHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.StreamHandle{}, err
	}

	handle := domain.StreamHandle{
		ID:   fmt.Sprintf("%s/%s/%s", participantID, kind, uuid.NewString()),
		Kind: kind,
	}

	a.mu.Lock()
	a.tracks[handle.ID] = participantID
	a.mu.Unlock()

	logger.Debug("Media track allocated",
		zap.String("track_id", handle.ID),
		zap.String("participant_id", participantID.String()),
		zap.String("kind", string(kind)))

	return handle, nil
}

// Release returns a track slot to the pool. Unknown handles are a no-op.
func (a *TrackAllocator) Release(ctx context.Context, stream domain.StreamHandle) {
	a.mu.Lock()
	_, known := a.tracks[stream.ID]
	delete(a.tracks, stream.ID)
	a.mu.Unlock()

	if known {
		logger.Debug("Media track released",
			zap.String("track_id", stream.ID),
			zap.String("kind", string(stream.Kind)))
	}
}

// ActiveTracks returns the number of tracks currently allocated
func (a *TrackAllocator) ActiveTracks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tracks)
}
