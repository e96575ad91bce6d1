package media

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	os.Exit(m.Run())
}

func TestTrackAllocator_Acquire(t *testing.T) {
	allocator := NewTrackAllocator()
	participantID := uuid.New()

	handle, err := allocator.Acquire(context.Background(), participantID, domain.MediaKindCamera)
	require.NoError(t, err)

	assert.Equal(t, domain.MediaKindCamera, handle.Kind)
	assert.True(t, strings.HasPrefix(handle.ID, participantID.String()+"/camera/"))
	assert.Equal(t, 1, allocator.ActiveTracks())
}

func TestTrackAllocator_AcquireCancelledContext(t *testing.T) {
	allocator := NewTrackAllocator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := allocator.Acquire(ctx, uuid.New(), domain.MediaKindMicrophone)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, allocator.ActiveTracks())
}

func TestTrackAllocator_HandlesAreUnique(t *testing.T) {
	allocator := NewTrackAllocator()
	participantID := uuid.New()

	first, err := allocator.Acquire(context.Background(), participantID, domain.MediaKindScreen)
	require.NoError(t, err)
	second, err := allocator.Acquire(context.Background(), participantID, domain.MediaKindScreen)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, allocator.ActiveTracks())
}

func TestTrackAllocator_Release(t *testing.T) {
	allocator := NewTrackAllocator()

	handle, err := allocator.Acquire(context.Background(), uuid.New(), domain.MediaKindCamera)
	require.NoError(t, err)
	require.Equal(t, 1, allocator.ActiveTracks())

	allocator.Release(context.Background(), handle)
	assert.Equal(t, 0, allocator.ActiveTracks())

	// Releasing an unknown handle is a no-op
	allocator.Release(context.Background(), domain.StreamHandle{ID: "unknown", Kind: domain.MediaKindCamera})
	assert.Equal(t, 0, allocator.ActiveTracks())
}
