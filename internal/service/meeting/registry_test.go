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

func newParticipant(name string, joinedAt time.Time) domain.Participant {
	return domain.Participant{
		ID:       uuid.New(),
		Name:     name,
		JoinedAt: joinedAt,
	}
}

// TestRegistryAddDuplicate tests that adding the same id twice fails
func TestRegistryAddDuplicate(t *testing.T) {
	r := NewRegistry()
	p := newParticipant("alice", time.Now())

	require.NoError(t, r.Add(p))

	// Re-adding the same id must fail and leave the roster unchanged
	err := r.Add(p)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateParticipant))
	assert.Equal(t, 1, r.Len())
}

// TestRegistryJoinOrder tests that snapshots preserve join order
func TestRegistryJoinOrder(t *testing.T) {
	r := NewRegistry()
	base := time.Now()

	alice := newParticipant("alice", base)
	bob := newParticipant("bob", base.Add(time.Second))
	carol := newParticipant("carol", base.Add(2*time.Second))

	require.NoError(t, r.Add(alice))
	require.NoError(t, r.Add(bob))
	require.NoError(t, r.Add(carol))

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, alice.ID, snapshot[0].ID)
	assert.Equal(t, bob.ID, snapshot[1].ID)
	assert.Equal(t, carol.ID, snapshot[2].ID)

	// Removing from the middle keeps the order of the rest
	_, err := r.Remove(bob.ID)
	require.NoError(t, err)
	snapshot = r.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, alice.ID, snapshot[0].ID)
	assert.Equal(t, carol.ID, snapshot[1].ID)
}

// TestRegistryRemoveUnknown tests removal of an absent participant
func TestRegistryRemoveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Remove(uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeParticipantNotFound))
}

// TestRegistryHostPromotion tests that the earliest-joined participant is
// promoted when the host leaves
func TestRegistryHostPromotion(t *testing.T) {
	r := NewRegistry()
	base := time.Now()

	host := newParticipant("host", base)
	host.IsHost = true
	second := newParticipant("second", base.Add(time.Second))
	third := newParticipant("third", base.Add(2*time.Second))

	require.NoError(t, r.Add(host))
	require.NoError(t, r.Add(second))
	require.NoError(t, r.Add(third))

	result, err := r.Remove(host.ID)
	require.NoError(t, err)
	assert.True(t, result.WasHost)
	require.NotNil(t, result.NewHostID)
	assert.Equal(t, second.ID, *result.NewHostID)

	hostID, ok := r.HostID()
	require.True(t, ok)
	assert.Equal(t, second.ID, hostID)
}

// TestRegistryEmptySignal tests that removing the last participant reports
// the empty roster instead of an error
func TestRegistryEmptySignal(t *testing.T) {
	r := NewRegistry()
	p := newParticipant("solo", time.Now())
	p.IsHost = true
	require.NoError(t, r.Add(p))

	result, err := r.Remove(p.ID)
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Nil(t, result.NewHostID)
	assert.Equal(t, 0, r.Len())
}

// TestRegistryUpdateFlags tests the atomic partial flag merge
func TestRegistryUpdateFlags(t *testing.T) {
	r := NewRegistry()
	p := newParticipant("alice", time.Now())
	require.NoError(t, r.Add(p))

	muted := true
	require.NoError(t, r.UpdateFlags(p.ID, domain.FlagUpdate{IsMuted: &muted}))

	got, ok := r.Get(p.ID)
	require.True(t, ok)
	assert.True(t, got.IsMuted)
	assert.False(t, got.IsCameraOff) // untouched field keeps its value

	cameraOff := true
	unmuted := false
	require.NoError(t, r.UpdateFlags(p.ID, domain.FlagUpdate{IsMuted: &unmuted, IsCameraOff: &cameraOff}))

	got, _ = r.Get(p.ID)
	assert.False(t, got.IsMuted)
	assert.True(t, got.IsCameraOff)

	err := r.UpdateFlags(uuid.New(), domain.FlagUpdate{IsMuted: &muted})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeParticipantNotFound))
}

// TestRegistryChangeListener tests per-mutation change events
func TestRegistryChangeListener(t *testing.T) {
	r := NewRegistry()
	var changes []RosterChange
	r.SetChangeListener(func(c RosterChange) {
		changes = append(changes, c)
	})

	base := time.Now()
	host := newParticipant("host", base)
	host.IsHost = true
	guest := newParticipant("guest", base.Add(time.Second))

	require.NoError(t, r.Add(host))
	require.NoError(t, r.Add(guest))
	_, err := r.Remove(host.ID)
	require.NoError(t, err)

	require.Len(t, changes, 4)
	assert.Equal(t, RosterJoined, changes[0].Kind)
	assert.Equal(t, RosterJoined, changes[1].Kind)
	assert.Equal(t, RosterLeft, changes[2].Kind)
	assert.Equal(t, RosterHostChanged, changes[3].Kind)
	assert.Equal(t, guest.ID, changes[3].Participant.ID)
}

// TestRegistrySpeakingNoOp tests that repeating the current speaking state
// emits no change
func TestRegistrySpeakingNoOp(t *testing.T) {
	r := NewRegistry()
	p := newParticipant("alice", time.Now())
	require.NoError(t, r.Add(p))

	var changes []RosterChange
	r.SetChangeListener(func(c RosterChange) {
		changes = append(changes, c)
	})

	require.NoError(t, r.SetSpeaking(p.ID, true))
	require.NoError(t, r.SetSpeaking(p.ID, true))
	require.NoError(t, r.SetSpeaking(p.ID, false))

	require.Len(t, changes, 2)
	assert.True(t, changes[0].Participant.IsSpeaking)
	assert.False(t, changes[1].Participant.IsSpeaking)
}

// TestRegistrySnapshotIsolation tests that mutating a snapshot does not
// affect registry state
func TestRegistrySnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	p := newParticipant("alice", time.Now())
	p.Streams = map[domain.MediaKind]domain.StreamHandle{
		domain.MediaKindCamera: {ID: "cam-1", Kind: domain.MediaKindCamera},
	}
	require.NoError(t, r.Add(p))

	snapshot := r.Snapshot()
	snapshot[0].Name = "mallory"
	delete(snapshot[0].Streams, domain.MediaKindCamera)

	got, _ := r.Get(p.ID)
	assert.Equal(t, "alice", got.Name)
	assert.Contains(t, got.Streams, domain.MediaKindCamera)
}
