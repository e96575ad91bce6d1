package meeting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/errors"
)

func newTestRoster(t *testing.T, names ...string) (*Registry, []domain.Participant) {
	t.Helper()
	r := NewRegistry()
	base := time.Now()
	participants := make([]domain.Participant, 0, len(names))
	for i, name := range names {
		p := newParticipant(name, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, r.Add(p))
		participants = append(participants, p)
	}
	return r, participants
}

// TestBinderBindCamera tests a plain camera binding
func TestBinderBindCamera(t *testing.T) {
	registry, ps := newTestRoster(t, "alice")
	b := NewBinder(registry)

	stream := domain.StreamHandle{ID: "cam-1", Kind: domain.MediaKindCamera}
	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindCamera, stream))

	streams := b.StreamsOf(ps[0].ID)
	assert.Equal(t, stream, streams[domain.MediaKindCamera])

	// The roster entry mirrors the binding
	got, _ := registry.Get(ps[0].ID)
	assert.Equal(t, stream, got.Streams[domain.MediaKindCamera])
}

// TestBinderBindUnknownParticipant tests binding for an absent participant
func TestBinderBindUnknownParticipant(t *testing.T) {
	registry, _ := newTestRoster(t, "alice")
	b := NewBinder(registry)

	err := b.Bind(uuid.New(), domain.MediaKindCamera, domain.StreamHandle{ID: "cam-1"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeParticipantNotFound))
}

// TestBinderScreenExclusivity tests the one-screen-stream-per-room rule
func TestBinderScreenExclusivity(t *testing.T) {
	registry, ps := newTestRoster(t, "alice", "bob")
	b := NewBinder(registry)

	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindScreen, domain.StreamHandle{ID: "scr-1", Kind: domain.MediaKindScreen}))

	// Second holder is rejected
	err := b.Bind(ps[1].ID, domain.MediaKindScreen, domain.StreamHandle{ID: "scr-2", Kind: domain.MediaKindScreen})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScreenShareConflict))

	holder, ok := b.ScreenHolder()
	require.True(t, ok)
	assert.Equal(t, ps[0].ID, holder)

	// After the holder unbinds, the slot is free again
	_, removed := b.Unbind(ps[0].ID, domain.MediaKindScreen)
	assert.True(t, removed)
	require.NoError(t, b.Bind(ps[1].ID, domain.MediaKindScreen, domain.StreamHandle{ID: "scr-2", Kind: domain.MediaKindScreen}))
}

// TestBinderCamerasNotExclusive tests that non-screen kinds have no
// per-room exclusivity
func TestBinderCamerasNotExclusive(t *testing.T) {
	registry, ps := newTestRoster(t, "alice", "bob")
	b := NewBinder(registry)

	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindCamera, domain.StreamHandle{ID: "cam-1"}))
	require.NoError(t, b.Bind(ps[1].ID, domain.MediaKindCamera, domain.StreamHandle{ID: "cam-2"}))
	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindMicrophone, domain.StreamHandle{ID: "mic-1"}))
	require.NoError(t, b.Bind(ps[1].ID, domain.MediaKindMicrophone, domain.StreamHandle{ID: "mic-2"}))
}

// TestBinderUnbindIdempotent tests that unbinding an unbound kind is a
// no-op rather than an error
func TestBinderUnbindIdempotent(t *testing.T) {
	registry, ps := newTestRoster(t, "alice")
	b := NewBinder(registry)

	_, removed := b.Unbind(ps[0].ID, domain.MediaKindCamera)
	assert.False(t, removed)

	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindCamera, domain.StreamHandle{ID: "cam-1"}))
	_, removed = b.Unbind(ps[0].ID, domain.MediaKindCamera)
	assert.True(t, removed)
	_, removed = b.Unbind(ps[0].ID, domain.MediaKindCamera)
	assert.False(t, removed)
}

// TestBinderReservation tests the reserve-then-commit screen protocol
func TestBinderReservation(t *testing.T) {
	registry, ps := newTestRoster(t, "alice", "bob")
	b := NewBinder(registry)

	require.NoError(t, b.ReserveScreen(ps[0].ID))

	// A pending reservation blocks other reservations and bindings
	err := b.ReserveScreen(ps[1].ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScreenShareConflict))
	err = b.Bind(ps[1].ID, domain.MediaKindScreen, domain.StreamHandle{ID: "scr-2"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScreenShareConflict))

	// Observers never see a reservation, only committed state
	_, ok := b.ScreenHolder()
	assert.False(t, ok)

	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindScreen, domain.StreamHandle{ID: "scr-1", Kind: domain.MediaKindScreen}))
	holder, ok := b.ScreenHolder()
	require.True(t, ok)
	assert.Equal(t, ps[0].ID, holder)
}

// TestBinderReservationRollback tests freeing the slot after a failed
// acquisition
func TestBinderReservationRollback(t *testing.T) {
	registry, ps := newTestRoster(t, "alice", "bob")
	b := NewBinder(registry)

	require.NoError(t, b.ReserveScreen(ps[0].ID))
	b.ReleaseScreenReservation(ps[0].ID)

	// Slot is free for the next reservation
	require.NoError(t, b.ReserveScreen(ps[1].ID))

	// Releasing someone else's reservation is a no-op
	b.ReleaseScreenReservation(ps[0].ID)
	err := b.ReserveScreen(ps[0].ID)
	require.Error(t, err)
}

// TestBinderUnbindAll tests stream cleanup on leave, including a pending
// reservation
func TestBinderUnbindAll(t *testing.T) {
	registry, ps := newTestRoster(t, "alice")
	b := NewBinder(registry)

	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindCamera, domain.StreamHandle{ID: "cam-1"}))
	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindMicrophone, domain.StreamHandle{ID: "mic-1"}))
	require.NoError(t, b.Bind(ps[0].ID, domain.MediaKindScreen, domain.StreamHandle{ID: "scr-1"}))

	released := b.UnbindAll(ps[0].ID)
	assert.Len(t, released, 3)
	assert.Empty(t, b.StreamsOf(ps[0].ID))
	_, ok := b.ScreenHolder()
	assert.False(t, ok)
}
