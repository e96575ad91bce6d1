package meeting

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/errors"
	"meetspace-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	m.Run()
}

// stubAcquirer hands out deterministic stream handles; Delay simulates a
// slow device/peer negotiation and respects context cancellation.
type stubAcquirer struct {
	mu       sync.Mutex
	Delay    time.Duration
	acquired int
	released []domain.StreamHandle
}

func (a *stubAcquirer) Acquire(ctx context.Context, participantID uuid.UUID, kind domain.MediaKind) (domain.StreamHandle, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return domain.StreamHandle{}, ctx.Err()
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acquired++
	return domain.StreamHandle{
		ID:   fmt.Sprintf("%s-%d", kind, a.acquired),
		Kind: kind,
	}, nil
}

func (a *stubAcquirer) Release(ctx context.Context, stream domain.StreamHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = append(a.released, stream)
}

func (a *stubAcquirer) releasedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.released)
}

// recordingNotifier captures every notification for assertions
type recordingNotifier struct {
	mu        sync.Mutex
	snapshots []*domain.RoomSnapshot
	messages  []domain.ChatMessage
}

func (n *recordingNotifier) RoomChanged(snapshot *domain.RoomSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, snapshot)
}

func (n *recordingNotifier) ChatAppended(roomID uuid.UUID, message domain.ChatMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) snapshotCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.snapshots)
}

func (n *recordingNotifier) lastSnapshot() *domain.RoomSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.snapshots) == 0 {
		return nil
	}
	return n.snapshots[len(n.snapshots)-1]
}

func newTestCoordinator(cfg Config) (*Coordinator, *stubAcquirer, *recordingNotifier) {
	acquirer := &stubAcquirer{}
	c := NewCoordinator(cfg, acquirer)
	notifier := &recordingNotifier{}
	c.AddNotifier(notifier)
	return c, acquirer, notifier
}

func mustCreateRoom(t *testing.T, c *Coordinator, hostName string) (*domain.RoomSnapshot, domain.Participant) {
	t.Helper()
	host := domain.Participant{ID: uuid.New(), Name: hostName}
	snapshot, err := c.CreateRoom(context.Background(), "standup", host, nil)
	require.NoError(t, err)
	return snapshot, host
}

// TestCreateRoom tests room creation and the initial snapshot
func TestCreateRoom(t *testing.T) {
	c, _, notifier := newTestCoordinator(DefaultConfig())

	snapshot, host := mustCreateRoom(t, c, "alice")

	assert.Equal(t, domain.RoomStateActive, snapshot.Room.State)
	assert.Equal(t, host.ID, snapshot.Room.HostID)
	assert.NotEmpty(t, snapshot.Room.MeetingCode)
	require.Len(t, snapshot.Room.Participants, 1)
	assert.True(t, snapshot.Room.Participants[0].IsHost)
	assert.Nil(t, snapshot.ScreenSharerID)

	assert.Equal(t, 1, notifier.snapshotCount())

	// Meeting code resolves back to the room
	roomID, err := c.ResolveCode(snapshot.Room.MeetingCode)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Room.ID, roomID)
}

// TestJoinDuplicate tests that a participant cannot join twice
func TestJoinDuplicate(t *testing.T) {
	c, _, _ := newTestCoordinator(DefaultConfig())
	snapshot, _ := mustCreateRoom(t, c, "alice")

	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	_, err := c.Join(context.Background(), snapshot.Room.ID, bob)
	require.NoError(t, err)

	_, err = c.Join(context.Background(), snapshot.Room.ID, bob)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateParticipant))
}

// TestJoinUnknownRoom tests joining a room that does not exist
func TestJoinUnknownRoom(t *testing.T) {
	c, _, _ := newTestCoordinator(DefaultConfig())

	_, err := c.Join(context.Background(), uuid.New(), domain.Participant{ID: uuid.New(), Name: "bob"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRoomNotFound))
}

// TestLastLeaveEndsRoom tests the Active → Ending transition when the
// roster empties, and that the ended room rejects new intents
func TestLastLeaveEndsRoom(t *testing.T) {
	c, _, notifier := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")
	code := snapshot.Room.MeetingCode

	require.NoError(t, c.Leave(context.Background(), snapshot.Room.ID, host.ID))

	// The final notification shows the room ending with an empty roster
	last := notifier.lastSnapshot()
	require.NotNil(t, last)
	assert.Equal(t, domain.RoomStateEnding, last.Room.State)
	assert.Empty(t, last.Room.Participants)

	// Join after the room ended fails with ROOM_NOT_ACTIVE
	_, err := c.Join(context.Background(), snapshot.Room.ID, domain.Participant{ID: uuid.New(), Name: "late"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRoomNotActive))

	// The meeting code is freed
	_, err = c.ResolveCode(code)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRoomNotFound))
}

// TestHostLeavePromotesEarliest tests host reassignment on host leave
func TestHostLeavePromotesEarliest(t *testing.T) {
	c, _, notifier := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")

	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	carol := domain.Participant{ID: uuid.New(), Name: "carol"}
	_, err := c.Join(context.Background(), snapshot.Room.ID, bob)
	require.NoError(t, err)
	_, err = c.Join(context.Background(), snapshot.Room.ID, carol)
	require.NoError(t, err)

	require.NoError(t, c.Leave(context.Background(), snapshot.Room.ID, host.ID))

	last := notifier.lastSnapshot()
	assert.Equal(t, domain.RoomStateActive, last.Room.State)
	assert.Equal(t, bob.ID, last.Room.HostID)
	require.Len(t, last.Room.Participants, 2)
	assert.True(t, last.Room.Participants[0].IsHost)
	assert.Equal(t, bob.ID, last.Room.Participants[0].ID)
}

// TestEndRoomRequiresHost tests the NOT_HOST guard on EndRoom
func TestEndRoomRequiresHost(t *testing.T) {
	c, _, _ := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")

	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	_, err := c.Join(context.Background(), snapshot.Room.ID, bob)
	require.NoError(t, err)

	err = c.EndRoom(context.Background(), snapshot.Room.ID, bob.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotHost))

	require.NoError(t, c.EndRoom(context.Background(), snapshot.Room.ID, host.ID))

	_, err = c.Join(context.Background(), snapshot.Room.ID, domain.Participant{ID: uuid.New(), Name: "late"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRoomNotActive))
}

// TestScreenShareConflict tests first-writer-wins exclusivity and the
// stop-then-start handover
func TestScreenShareConflict(t *testing.T) {
	c, _, _ := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	_, err := c.Join(context.Background(), roomID, bob)
	require.NoError(t, err)

	sharing, err := c.ToggleScreenShare(context.Background(), roomID, host.ID)
	require.NoError(t, err)
	assert.True(t, sharing)

	// Second starter is rejected while the slot is held
	_, err = c.ToggleScreenShare(context.Background(), roomID, bob.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScreenShareConflict))

	view, err := c.Snapshot(roomID)
	require.NoError(t, err)
	require.NotNil(t, view.ScreenSharerID)
	assert.Equal(t, host.ID, *view.ScreenSharerID)

	// Holder stops, then the other participant can start
	sharing, err = c.ToggleScreenShare(context.Background(), roomID, host.ID)
	require.NoError(t, err)
	assert.False(t, sharing)

	sharing, err = c.ToggleScreenShare(context.Background(), roomID, bob.ID)
	require.NoError(t, err)
	assert.True(t, sharing)
}

// TestScreenShareAutoRevoke tests the revoke-current-holder policy
func TestScreenShareAutoRevoke(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoRevokeScreenShare = true
	c, acquirer, _ := newTestCoordinator(cfg)
	snapshot, host := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	_, err := c.Join(context.Background(), roomID, bob)
	require.NoError(t, err)

	_, err = c.ToggleScreenShare(context.Background(), roomID, host.ID)
	require.NoError(t, err)

	sharing, err := c.ToggleScreenShare(context.Background(), roomID, bob.ID)
	require.NoError(t, err)
	assert.True(t, sharing)

	view, err := c.Snapshot(roomID)
	require.NoError(t, err)
	require.NotNil(t, view.ScreenSharerID)
	assert.Equal(t, bob.ID, *view.ScreenSharerID)

	// The revoked holder's stream was released
	assert.Equal(t, 1, acquirer.releasedCount())
}

// TestScreenShareAcquireTimeout tests mapping a slow acquisition to
// MEDIA_ACQUISITION_TIMEOUT and rolling back the reservation
func TestScreenShareAcquireTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MediaAcquireTimeout = 20 * time.Millisecond
	c, acquirer, _ := newTestCoordinator(cfg)
	acquirer.Delay = 200 * time.Millisecond

	snapshot, host := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	_, err := c.ToggleScreenShare(context.Background(), roomID, host.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMediaTimeout))

	// The reservation rolled back: the next attempt is not blocked
	acquirer.Delay = 0
	sharing, err := c.ToggleScreenShare(context.Background(), roomID, host.ID)
	require.NoError(t, err)
	assert.True(t, sharing)
}

// TestBindMediaCamera tests binding and unbinding a camera stream
func TestBindMediaCamera(t *testing.T) {
	c, acquirer, _ := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	require.NoError(t, c.BindMedia(context.Background(), roomID, host.ID, domain.MediaKindCamera))

	view, err := c.Snapshot(roomID)
	require.NoError(t, err)
	assert.Contains(t, view.Room.Participants[0].Streams, domain.MediaKindCamera)

	require.NoError(t, c.UnbindMedia(context.Background(), roomID, host.ID, domain.MediaKindCamera))
	assert.Equal(t, 1, acquirer.releasedCount())

	// Unbinding again is a no-op
	require.NoError(t, c.UnbindMedia(context.Background(), roomID, host.ID, domain.MediaKindCamera))
	assert.Equal(t, 1, acquirer.releasedCount())
}

// TestLeaveReleasesStreams tests media cleanup when a participant leaves
func TestLeaveReleasesStreams(t *testing.T) {
	c, acquirer, _ := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	_, err := c.Join(context.Background(), roomID, bob)
	require.NoError(t, err)

	require.NoError(t, c.BindMedia(context.Background(), roomID, bob.ID, domain.MediaKindCamera))
	_, err = c.ToggleScreenShare(context.Background(), roomID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, c.Leave(context.Background(), roomID, bob.ID))
	assert.Equal(t, 2, acquirer.releasedCount())

	// The screen slot is free for the remaining participant
	sharing, err := c.ToggleScreenShare(context.Background(), roomID, host.ID)
	require.NoError(t, err)
	assert.True(t, sharing)
}

// TestUpdateFlags tests the partial flag update path end to end
func TestUpdateFlags(t *testing.T) {
	c, _, notifier := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")

	muted := true
	require.NoError(t, c.UpdateFlags(context.Background(), snapshot.Room.ID, host.ID, domain.FlagUpdate{IsMuted: &muted}))

	last := notifier.lastSnapshot()
	assert.True(t, last.Room.Participants[0].IsMuted)

	// An empty update emits no notification
	before := notifier.snapshotCount()
	require.NoError(t, c.UpdateFlags(context.Background(), snapshot.Room.ID, host.ID, domain.FlagUpdate{}))
	assert.Equal(t, before, notifier.snapshotCount())
}

// TestSendChat tests message append, fan-out, and the unknown sender guard
func TestSendChat(t *testing.T) {
	c, _, notifier := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	msg, err := c.SendChat(context.Background(), roomID, host.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.SenderName)
	assert.Equal(t, int64(1), msg.Seq)
	assert.False(t, msg.StoredAt.Resolved())

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, msg.ID, notifier.messages[0].ID)

	// A sender that never joined is rejected
	_, err = c.SendChat(context.Background(), roomID, uuid.New(), "spoofed")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownSender))
}

// TestSendChatAfterLeave tests that history keeps a departed sender's
// messages and name
func TestSendChatAfterLeave(t *testing.T) {
	c, _, _ := newTestCoordinator(DefaultConfig())
	snapshot, _ := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	_, err := c.Join(context.Background(), roomID, bob)
	require.NoError(t, err)

	_, err = c.SendChat(context.Background(), roomID, bob.ID, "before leaving")
	require.NoError(t, err)
	require.NoError(t, c.Leave(context.Background(), roomID, bob.ID))

	// Past participants stay known senders for history purposes, and the
	// room still accepts their messages while they are marked as seen
	history, err := c.History(roomID)
	require.NoError(t, err)
	var count int
	for msg := range history {
		count++
		assert.Equal(t, "bob", msg.SenderName)
	}
	assert.Equal(t, 1, count)
}

// TestCoalescedNotifications tests that each mutating operation emits
// exactly one snapshot
func TestCoalescedNotifications(t *testing.T) {
	c, _, notifier := newTestCoordinator(DefaultConfig())
	snapshot, host := mustCreateRoom(t, c, "alice")
	roomID := snapshot.Room.ID

	// Host leave with two remaining participants mutates the roster twice
	// (removal plus promotion) but must notify once
	bob := domain.Participant{ID: uuid.New(), Name: "bob"}
	_, err := c.Join(context.Background(), roomID, bob)
	require.NoError(t, err)
	before := notifier.snapshotCount()

	require.NoError(t, c.Leave(context.Background(), roomID, host.ID))
	assert.Equal(t, before+1, notifier.snapshotCount())

	// Versions increase strictly per notification
	versions := make(map[uint64]bool)
	notifier.mu.Lock()
	for _, s := range notifier.snapshots {
		assert.False(t, versions[s.Version])
		versions[s.Version] = true
	}
	notifier.mu.Unlock()
}

// TestEndAll tests force-ending every room on shutdown
func TestEndAll(t *testing.T) {
	c, _, _ := newTestCoordinator(DefaultConfig())
	first, _ := mustCreateRoom(t, c, "alice")
	second, _ := mustCreateRoom(t, c, "bob")

	c.EndAll(context.Background())

	for _, roomID := range []uuid.UUID{first.Room.ID, second.Room.ID} {
		view, err := c.Snapshot(roomID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoomStateClosed, view.Room.State)
		require.NotNil(t, view.Room.EndedAt)
	}
}
