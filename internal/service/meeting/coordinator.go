package meeting

import (
	"context"
	"crypto/rand"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/audit"
	pkgcontext "meetspace-backend/pkg/context"
	"meetspace-backend/pkg/errors"
	"meetspace-backend/pkg/logger"
	"meetspace-backend/pkg/metrics"
)

// Config holds coordinator policy knobs
type Config struct {
	// AutoRevokeScreenShare resolves a screen-share conflict by revoking
	// the current holder instead of surfacing the conflict to the caller.
	// Default false: first writer wins and the conflict is surfaced.
	AutoRevokeScreenShare bool

	// MediaAcquireTimeout bounds a single media stream acquisition
	MediaAcquireTimeout time.Duration

	// MaxParticipants caps the roster size per room
	MaxParticipants int
}

// DefaultConfig returns the default coordinator policy
func DefaultConfig() Config {
	return Config{
		AutoRevokeScreenShare: false,
		MediaAcquireTimeout:   10 * time.Second,
		MaxParticipants:       100,
	}
}

// Coordinator owns room lifecycle, mediates screen-share exclusivity, and
// emits room-state change notifications to observers. All mutating
// operations against a given room are serialized by that room's mutex;
// reads take consistent point-in-time snapshots under the same mutex.
// Media acquisition never runs while the room mutex is held.
type Coordinator struct {
	cfg      Config
	acquirer StreamAcquirer

	mu    sync.RWMutex
	rooms map[uuid.UUID]*roomState
	codes map[string]uuid.UUID // meeting code -> room id, active rooms only

	notifiers    []Notifier
	roomArchiver RoomArchiver
	chatArchiver ChatArchiver
	invites      InviteSender
	auditLog     *audit.AuditLogger
}

// roomState bundles one room's components behind its serialization mutex
type roomState struct {
	mu       sync.Mutex
	info     domain.MeetingRoom // Participants kept empty; filled per snapshot
	state    domain.RoomState
	registry *Registry
	binder   *Binder
	chat     *ChatLog
	seen     map[uuid.UUID]string // past or current participant id -> name
	version  uint64
	pending  []RosterChange // roster changes accumulated during the current operation
}

// NewCoordinator creates a coordinator. acquirer is required; the
// write-behind collaborators are optional and attached via setters.
func NewCoordinator(cfg Config, acquirer StreamAcquirer) *Coordinator {
	if cfg.MediaAcquireTimeout <= 0 {
		cfg.MediaAcquireTimeout = DefaultConfig().MediaAcquireTimeout
	}
	if cfg.MaxParticipants <= 0 {
		cfg.MaxParticipants = DefaultConfig().MaxParticipants
	}
	return &Coordinator{
		cfg:      cfg,
		acquirer: acquirer,
		rooms:    make(map[uuid.UUID]*roomState),
		codes:    make(map[string]uuid.UUID),
	}
}

// AddNotifier attaches an observer for room-state notifications
func (c *Coordinator) AddNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifiers = append(c.notifiers, n)
}

// SetRoomArchiver attaches the write-behind room persistence collaborator
func (c *Coordinator) SetRoomArchiver(a RoomArchiver) { c.roomArchiver = a }

// SetChatArchiver attaches the write-behind chat persistence collaborator
func (c *Coordinator) SetChatArchiver(a ChatArchiver) { c.chatArchiver = a }

// SetInviteSender attaches the push invitation collaborator
func (c *Coordinator) SetInviteSender(s InviteSender) { c.invites = s }

// SetAuditLogger attaches the audit trail collaborator
func (c *Coordinator) SetAuditLogger(al *audit.AuditLogger) { c.auditLog = al }

// CreateRoom creates a room with the given host, transitions it to Active,
// and returns the initial snapshot. Optional inviteeIDs receive a push
// invitation as a best-effort side effect.
func (c *Coordinator) CreateRoom(ctx context.Context, name string, host domain.Participant, inviteeIDs []uuid.UUID) (*domain.RoomSnapshot, error) {
	if name == "" {
		return nil, errors.MissingFieldError("name")
	}
	if host.ID == uuid.Nil {
		return nil, errors.MissingFieldError("host id")
	}

	now := time.Now().UTC()
	host.IsHost = true
	host.JoinedAt = now

	rs := &roomState{
		info: domain.MeetingRoom{
			ID:        uuid.New(),
			Name:      name,
			HostID:    host.ID,
			State:     domain.RoomStateCreated,
			StartedAt: now,
		},
		state:    domain.RoomStateCreated,
		registry: NewRegistry(),
		seen:     make(map[uuid.UUID]string),
	}
	rs.binder = NewBinder(rs.registry)
	rs.chat = NewChatLog(rs.info.ID, func(id uuid.UUID) bool {
		_, ok := rs.seen[id]
		return ok
	})
	rs.registry.SetChangeListener(func(change RosterChange) {
		rs.pending = append(rs.pending, change)
	})

	if err := rs.registry.Add(host); err != nil {
		return nil, err
	}
	rs.seen[host.ID] = host.Name
	rs.state = domain.RoomStateActive

	c.mu.Lock()
	rs.info.MeetingCode = c.newMeetingCodeLocked()
	c.rooms[rs.info.ID] = rs
	c.codes[rs.info.MeetingCode] = rs.info.ID
	c.mu.Unlock()

	metrics.MeetingRoomsActive.Inc()
	metrics.MeetingRoomsCreatedTotal.Inc()
	metrics.MeetingParticipants.Inc()

	rs.mu.Lock()
	snapshot := c.applyNotifyLocked(rs)
	rs.mu.Unlock()

	c.archiveRoom(rs.info.ID)
	c.archiveJoin(rs.info.ID, host)
	c.auditEvent(audit.EventRoomCreated, rs.info.ID, &host.ID, true, "")

	if c.invites != nil && len(inviteeIDs) > 0 {
		room := snapshot.Room
		go c.invites.SendMeetingInvite(context.WithoutCancel(ctx), &room, host, inviteeIDs)
	}

	logger.Info("meeting room created",
		zap.String("room_id", rs.info.ID.String()),
		zap.String("meeting_code", rs.info.MeetingCode),
		zap.String("host_id", host.ID.String()))

	return snapshot, nil
}

// Join adds a participant to an active room.
// Fails with ROOM_NOT_ACTIVE once the room is Ending or Closed, and with
// PARTICIPANT_EXISTS if the id is already on the roster.
func (c *Coordinator) Join(ctx context.Context, roomID uuid.UUID, p domain.Participant) (*domain.RoomSnapshot, error) {
	rs, err := c.room(roomID)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	if !rs.state.AcceptsIntents() {
		state := rs.state
		rs.mu.Unlock()
		return nil, errors.RoomNotActiveError(string(state))
	}
	if rs.registry.Len() >= c.cfg.MaxParticipants {
		rs.mu.Unlock()
		return nil, errors.ServiceUnavailableError("meeting room is full")
	}

	p.IsHost = false // joiners never arrive as host
	p.JoinedAt = time.Now().UTC()
	if err := rs.registry.Add(p); err != nil {
		rs.pending = nil
		rs.mu.Unlock()
		return nil, err
	}
	rs.seen[p.ID] = p.Name
	snapshot := c.applyNotifyLocked(rs)
	rs.mu.Unlock()

	metrics.MeetingParticipants.Inc()
	metrics.MeetingJoinsTotal.Inc()

	c.archiveJoin(roomID, p)
	c.auditEvent(audit.EventParticipantJoined, roomID, &p.ID, true, "")

	return snapshot, nil
}

// Leave removes a participant, releasing any bound media streams. When the
// host leaves, the earliest-joined remaining participant is promoted; when
// the roster empties, the room transitions Active → Ending and is closed.
func (c *Coordinator) Leave(ctx context.Context, roomID, participantID uuid.UUID) error {
	rs, err := c.room(roomID)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	released := rs.binder.UnbindAll(participantID)
	result, err := rs.registry.Remove(participantID)
	if err != nil {
		rs.pending = nil
		rs.mu.Unlock()
		return err
	}

	ended := false
	if result.Empty && rs.state.AcceptsIntents() {
		// Registry signalled RoomEmpty: handled here, never surfaced.
		rs.state = domain.RoomStateEnding
	}
	c.applyNotifyLocked(rs)
	if rs.state == domain.RoomStateEnding {
		c.closeLocked(rs)
		ended = true
	}
	rs.mu.Unlock()

	c.releaseStreams(released)
	metrics.MeetingParticipants.Dec()
	metrics.MeetingLeavesTotal.Inc()

	c.archiveLeave(roomID, participantID)
	c.auditEvent(audit.EventParticipantLeft, roomID, &participantID, true, "")
	if result.NewHostID != nil {
		c.auditEvent(audit.EventHostChanged, roomID, result.NewHostID, true, "")
	}
	if ended {
		c.finishRoom(rs, "empty")
	}

	return nil
}

// EndRoom ends the meeting for everyone. Fails with NOT_HOST unless the
// caller currently holds the host role.
func (c *Coordinator) EndRoom(ctx context.Context, roomID, byParticipantID uuid.UUID) error {
	rs, err := c.room(roomID)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	if !rs.state.AcceptsIntents() {
		state := rs.state
		rs.mu.Unlock()
		return errors.RoomNotActiveError(string(state))
	}
	hostID, ok := rs.registry.HostID()
	if !ok || hostID != byParticipantID {
		rs.mu.Unlock()
		return errors.NotHostError()
	}

	var released []domain.StreamHandle
	for _, p := range rs.registry.Snapshot() {
		released = append(released, rs.binder.UnbindAll(p.ID)...)
	}
	participants := rs.registry.Len()
	rs.state = domain.RoomStateEnding
	c.applyNotifyLocked(rs)
	c.closeLocked(rs)
	rs.mu.Unlock()

	c.releaseStreams(released)
	metrics.MeetingParticipants.Sub(float64(participants))
	c.auditEvent(audit.EventRoomEnded, roomID, &byParticipantID, true, "")
	c.finishRoom(rs, "host_ended")
	return nil
}

// UpdateFlags atomically merges a partial flag update (mute, camera) into
// the participant's entry and notifies observers.
func (c *Coordinator) UpdateFlags(ctx context.Context, roomID, participantID uuid.UUID, update domain.FlagUpdate) error {
	rs, err := c.room(roomID)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.state.AcceptsIntents() {
		return errors.RoomNotActiveError(string(rs.state))
	}
	if err := rs.registry.UpdateFlags(participantID, update); err != nil {
		rs.pending = nil
		return err
	}
	if len(rs.pending) > 0 {
		c.applyNotifyLocked(rs)
	}
	return nil
}

// SetSpeaking records an audio-activity signal on the transient speaking
// flag. The flag is never persisted.
func (c *Coordinator) SetSpeaking(ctx context.Context, roomID, participantID uuid.UUID, speaking bool) error {
	rs, err := c.room(roomID)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.state.AcceptsIntents() {
		return errors.RoomNotActiveError(string(rs.state))
	}
	if err := rs.registry.SetSpeaking(participantID, speaking); err != nil {
		rs.pending = nil
		return err
	}
	if len(rs.pending) > 0 {
		c.applyNotifyLocked(rs)
	}
	return nil
}

// ToggleScreenShare flips the caller's screen-share state. Starting a
// share while another participant holds the slot fails with
// SCREEN_SHARE_CONFLICT unless auto-revoke is configured. The returned
// bool reports whether the caller is sharing after the call.
func (c *Coordinator) ToggleScreenShare(ctx context.Context, roomID, participantID uuid.UUID) (bool, error) {
	rs, err := c.room(roomID)
	if err != nil {
		return false, err
	}

	rs.mu.Lock()
	if !rs.state.AcceptsIntents() {
		state := rs.state
		rs.mu.Unlock()
		return false, errors.RoomNotActiveError(string(state))
	}

	if holder, ok := rs.binder.ScreenHolder(); ok && holder == participantID {
		stream, _ := rs.binder.Unbind(participantID, domain.MediaKindScreen)
		c.applyNotifyLocked(rs)
		rs.mu.Unlock()
		c.releaseStreams([]domain.StreamHandle{stream})
		c.auditEvent(audit.EventScreenShareStopped, roomID, &participantID, true, "")
		return false, nil
	}

	var revoked []domain.StreamHandle
	if err := rs.binder.ReserveScreen(participantID); err != nil {
		if errors.IsCode(err, errors.ErrCodeScreenShareConflict) && c.cfg.AutoRevokeScreenShare {
			holder, _ := rs.binder.ScreenHolder()
			if stream, ok := rs.binder.Unbind(holder, domain.MediaKindScreen); ok {
				revoked = append(revoked, stream)
			}
			err = rs.binder.ReserveScreen(participantID)
		}
		if err != nil {
			rs.mu.Unlock()
			if errors.IsCode(err, errors.ErrCodeScreenShareConflict) {
				metrics.ScreenShareConflictTotal.Inc()
			}
			return false, err
		}
	}
	rs.mu.Unlock()

	// Slot reserved; acquire the stream without holding the room lock so
	// other intents keep flowing while negotiation is in flight.
	stream, err := c.acquire(ctx, participantID, domain.MediaKindScreen)

	rs.mu.Lock()
	if err != nil {
		rs.binder.ReleaseScreenReservation(participantID)
		rs.mu.Unlock()
		c.releaseStreams(revoked)
		return false, err
	}
	if !rs.state.AcceptsIntents() || !rs.registry.Has(participantID) {
		state := rs.state
		inRoom := rs.registry.Has(participantID)
		rs.binder.ReleaseScreenReservation(participantID)
		rs.mu.Unlock()
		c.releaseStreams(append(revoked, stream))
		if !inRoom {
			return false, errors.ParticipantNotFoundError(participantID.String())
		}
		return false, errors.RoomNotActiveError(string(state))
	}
	if err := rs.binder.Bind(participantID, domain.MediaKindScreen, stream); err != nil {
		rs.binder.ReleaseScreenReservation(participantID)
		rs.mu.Unlock()
		c.releaseStreams(append(revoked, stream))
		return false, err
	}
	c.applyNotifyLocked(rs)
	rs.mu.Unlock()

	c.releaseStreams(revoked)
	metrics.ScreenSharesStartedTotal.Inc()
	c.auditEvent(audit.EventScreenShareStarted, roomID, &participantID, true, "")
	return true, nil
}

// BindMedia acquires and binds a camera or microphone stream. Screen
// binding goes through ToggleScreenShare, which owns the exclusivity
// protocol.
func (c *Coordinator) BindMedia(ctx context.Context, roomID, participantID uuid.UUID, kind domain.MediaKind) error {
	if kind == domain.MediaKindScreen {
		return errors.InvalidInputError("use the screen share toggle to bind a screen stream")
	}
	if !kind.Valid() {
		return errors.InvalidMediaKindError(string(kind))
	}

	rs, err := c.room(roomID)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	if !rs.state.AcceptsIntents() {
		state := rs.state
		rs.mu.Unlock()
		return errors.RoomNotActiveError(string(state))
	}
	if !rs.registry.Has(participantID) {
		rs.mu.Unlock()
		return errors.ParticipantNotFoundError(participantID.String())
	}
	rs.mu.Unlock()

	stream, err := c.acquire(ctx, participantID, kind)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	if !rs.state.AcceptsIntents() || !rs.registry.Has(participantID) {
		rs.mu.Unlock()
		// The participant left (or the room ended) mid-acquisition:
		// leave no partial entry behind.
		c.releaseStreams([]domain.StreamHandle{stream})
		return errors.ParticipantNotFoundError(participantID.String())
	}
	if err := rs.binder.Bind(participantID, kind, stream); err != nil {
		rs.mu.Unlock()
		c.releaseStreams([]domain.StreamHandle{stream})
		return err
	}
	c.applyNotifyLocked(rs)
	rs.mu.Unlock()
	return nil
}

// UnbindMedia detaches a bound stream. Unbinding an unbound kind is a
// no-op.
func (c *Coordinator) UnbindMedia(ctx context.Context, roomID, participantID uuid.UUID, kind domain.MediaKind) error {
	if !kind.Valid() {
		return errors.InvalidMediaKindError(string(kind))
	}
	rs, err := c.room(roomID)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	stream, removed := rs.binder.Unbind(participantID, kind)
	if removed {
		c.applyNotifyLocked(rs)
	}
	rs.mu.Unlock()

	if removed {
		c.releaseStreams([]domain.StreamHandle{stream})
		if kind == domain.MediaKindScreen {
			c.auditEvent(audit.EventScreenShareStopped, roomID, &participantID, true, "")
		}
	}
	return nil
}

// SendChat appends a message to the room's chat log.
// Fails with ROOM_NOT_ACTIVE once the room is Ending or Closed and with
// UNKNOWN_SENDER if the sender never joined this room.
func (c *Coordinator) SendChat(ctx context.Context, roomID, senderID uuid.UUID, content string) (domain.ChatMessage, error) {
	if content == "" {
		return domain.ChatMessage{}, errors.MissingFieldError("content")
	}

	rs, err := c.room(roomID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	rs.mu.Lock()
	if !rs.state.AcceptsIntents() {
		state := rs.state
		rs.mu.Unlock()
		return domain.ChatMessage{}, errors.RoomNotActiveError(string(state))
	}
	msg, err := rs.chat.Append(senderID, rs.seen[senderID], content, time.Now().UTC())
	if err != nil {
		rs.mu.Unlock()
		return domain.ChatMessage{}, err
	}
	for _, n := range c.notifierList() {
		n.ChatAppended(roomID, msg)
	}
	rs.mu.Unlock()

	metrics.ChatMessagesTotal.Inc()
	c.auditEvent(audit.EventMessageSent, roomID, &senderID, true, "")
	c.archiveMessage(rs, msg)

	return msg, nil
}

// History returns the room's chat log in display order as a restartable
// sequence built from a point-in-time copy.
func (c *Coordinator) History(roomID uuid.UUID) (iter.Seq[domain.ChatMessage], error) {
	rs, err := c.room(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.chat.History(), nil
}

// HistoryPage returns one page of the chat log plus the total count
func (c *Coordinator) HistoryPage(roomID uuid.UUID, limit, offset int) ([]domain.ChatMessage, int, error) {
	rs, err := c.room(roomID)
	if err != nil {
		return nil, 0, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	page, total := rs.chat.HistoryPage(limit, offset)
	return page, total, nil
}

// Snapshot returns a consistent point-in-time view of the room
func (c *Coordinator) Snapshot(roomID uuid.UUID) (*domain.RoomSnapshot, error) {
	rs, err := c.room(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return c.snapshotLocked(rs), nil
}

// ResolveCode maps an external-facing meeting code to the room id
func (c *Coordinator) ResolveCode(code string) (uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roomID, ok := c.codes[code]
	if !ok {
		return uuid.Nil, errors.RoomNotFoundError()
	}
	return roomID, nil
}

// EndAll force-ends every active room; used during graceful shutdown
func (c *Coordinator) EndAll(ctx context.Context) {
	c.mu.RLock()
	rooms := make([]*roomState, 0, len(c.rooms))
	for _, rs := range c.rooms {
		rooms = append(rooms, rs)
	}
	c.mu.RUnlock()

	for _, rs := range rooms {
		rs.mu.Lock()
		if !rs.state.AcceptsIntents() {
			rs.mu.Unlock()
			continue
		}
		var released []domain.StreamHandle
		for _, p := range rs.registry.Snapshot() {
			released = append(released, rs.binder.UnbindAll(p.ID)...)
		}
		participants := rs.registry.Len()
		rs.state = domain.RoomStateEnding
		c.applyNotifyLocked(rs)
		c.closeLocked(rs)
		rs.mu.Unlock()

		c.releaseStreams(released)
		metrics.MeetingParticipants.Sub(float64(participants))
		c.finishRoom(rs, "shutdown")
	}
}

// room looks up a room's state holder
func (c *Coordinator) room(roomID uuid.UUID) (*roomState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rs, ok := c.rooms[roomID]
	if !ok {
		return nil, errors.RoomNotFoundError()
	}
	return rs, nil
}

func (c *Coordinator) notifierList() []Notifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notifiers
}

// snapshotLocked builds an immutable view; callers hold rs.mu
func (c *Coordinator) snapshotLocked(rs *roomState) *domain.RoomSnapshot {
	room := rs.info
	room.State = rs.state
	room.Participants = rs.registry.Snapshot()
	if hostID, ok := rs.registry.HostID(); ok {
		room.HostID = hostID
		rs.info.HostID = hostID
	}
	snapshot := &domain.RoomSnapshot{
		Room:    room,
		Version: rs.version,
		TakenAt: time.Now().UTC(),
	}
	if holder, ok := rs.binder.ScreenHolder(); ok {
		snapshot.ScreenSharerID = &holder
	}
	return snapshot
}

// applyNotifyLocked coalesces the operation's accumulated changes into one
// versioned snapshot and fans it out; callers hold rs.mu
func (c *Coordinator) applyNotifyLocked(rs *roomState) *domain.RoomSnapshot {
	rs.pending = nil
	rs.version++
	snapshot := c.snapshotLocked(rs)
	metrics.RoomNotificationsTotal.Inc()
	for _, n := range c.notifierList() {
		n.RoomChanged(snapshot)
	}
	return snapshot
}

// closeLocked finalizes an Ending room to its terminal state and frees the
// meeting code; callers hold rs.mu
func (c *Coordinator) closeLocked(rs *roomState) {
	now := time.Now().UTC()
	rs.state = domain.RoomStateClosed
	rs.info.EndedAt = &now

	c.mu.Lock()
	delete(c.codes, rs.info.MeetingCode)
	c.mu.Unlock()
}

// finishRoom records metrics/audit/archive for a just-closed room
func (c *Coordinator) finishRoom(rs *roomState, reason string) {
	metrics.MeetingRoomsActive.Dec()
	metrics.MeetingRoomsClosedTotal.WithLabelValues(reason).Inc()
	c.archiveRoom(rs.info.ID)
	logger.Info("meeting room closed",
		zap.String("room_id", rs.info.ID.String()),
		zap.String("reason", reason))
}

// acquire runs a media acquisition bounded by the configured timeout and
// maps a deadline expiry to MEDIA_ACQUISITION_TIMEOUT
func (c *Coordinator) acquire(ctx context.Context, participantID uuid.UUID, kind domain.MediaKind) (domain.StreamHandle, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.MediaAcquireTimeout)
	defer cancel()

	start := time.Now()
	stream, err := c.acquirer.Acquire(acquireCtx, participantID, kind)
	metrics.MediaAcquireDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		if acquireCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			metrics.MediaAcquireTimeoutsTotal.Inc()
			return domain.StreamHandle{}, errors.MediaTimeoutError(string(kind))
		}
		return domain.StreamHandle{}, err
	}
	return stream, nil
}

// releaseStreams disposes streams outside the room lock
func (c *Coordinator) releaseStreams(streams []domain.StreamHandle) {
	for _, stream := range streams {
		if stream.ID == "" {
			continue
		}
		ctx, cancel := pkgcontext.WithShortTimeout(context.Background())
		c.acquirer.Release(ctx, stream)
		cancel()
	}
}

// archiveRoom persists the room record write-behind
func (c *Coordinator) archiveRoom(roomID uuid.UUID) {
	if c.roomArchiver == nil {
		return
	}
	rs, err := c.room(roomID)
	if err != nil {
		return
	}
	rs.mu.Lock()
	room := c.snapshotLocked(rs).Room
	rs.mu.Unlock()

	go func() {
		ctx, cancel := pkgcontext.WithMediumTimeout(context.Background())
		defer cancel()
		if err := c.roomArchiver.SaveRoom(ctx, &room); err != nil {
			logger.Warn("room archive write failed",
				zap.String("room_id", room.ID.String()),
				zap.Error(err))
		}
	}()
}

func (c *Coordinator) archiveJoin(roomID uuid.UUID, p domain.Participant) {
	if c.roomArchiver == nil {
		return
	}
	go func() {
		ctx, cancel := pkgcontext.WithMediumTimeout(context.Background())
		defer cancel()
		if err := c.roomArchiver.RecordJoin(ctx, roomID, p); err != nil {
			logger.Warn("participant join archive failed",
				zap.String("room_id", roomID.String()),
				zap.String("participant_id", p.ID.String()),
				zap.Error(err))
		}
	}()
}

func (c *Coordinator) archiveLeave(roomID, participantID uuid.UUID) {
	if c.roomArchiver == nil {
		return
	}
	leftAt := time.Now().UTC()
	go func() {
		ctx, cancel := pkgcontext.WithMediumTimeout(context.Background())
		defer cancel()
		if err := c.roomArchiver.RecordLeave(ctx, roomID, participantID, leftAt); err != nil {
			logger.Warn("participant leave archive failed",
				zap.String("room_id", roomID.String()),
				zap.String("participant_id", participantID.String()),
				zap.Error(err))
		}
	}()
}

// archiveMessage persists the message write-behind and resolves its
// pending write marker on commit
func (c *Coordinator) archiveMessage(rs *roomState, msg domain.ChatMessage) {
	if c.chatArchiver == nil {
		return
	}
	go func() {
		ctx, cancel := pkgcontext.WithMediumTimeout(context.Background())
		defer cancel()
		committedAt, err := c.chatArchiver.SaveMessage(ctx, &msg)
		if err != nil {
			metrics.ChatMessagesArchivedTotal.WithLabelValues("error").Inc()
			logger.Warn("chat archive write failed",
				zap.String("room_id", msg.RoomID.String()),
				zap.Int64("seq", msg.Seq),
				zap.Error(err))
			return
		}
		metrics.ChatMessagesArchivedTotal.WithLabelValues("ok").Inc()
		rs.mu.Lock()
		rs.chat.MarkStored(msg.Seq, committedAt)
		rs.mu.Unlock()
	}()
}

// auditEvent records a meeting lifecycle event write-behind
func (c *Coordinator) auditEvent(eventType audit.EventType, roomID uuid.UUID, participantID *uuid.UUID, success bool, details string) {
	if c.auditLog == nil {
		return
	}
	go func() {
		ctx, cancel := pkgcontext.WithShortTimeout(context.Background())
		defer cancel()
		if err := c.auditLog.Log(ctx, &audit.Event{
			EventType:     eventType,
			RoomID:        roomID,
			ParticipantID: participantID,
			Success:       success,
			Details:       details,
		}); err != nil {
			logger.Debug("audit write failed", zap.Error(err))
		}
	}()
}

const meetingCodeAlphabet = "abcdefghjkmnpqrstuvwxyz" // no i/l/o to avoid misreads

// newMeetingCodeLocked generates a join code unique among active rooms;
// callers hold c.mu
func (c *Coordinator) newMeetingCodeLocked() string {
	for {
		buf := make([]byte, 10)
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		code := make([]byte, 0, 12)
		for i, b := range buf {
			if i == 3 || i == 7 {
				code = append(code, '-')
			}
			code = append(code, meetingCodeAlphabet[int(b)%len(meetingCodeAlphabet)])
		}
		if _, taken := c.codes[string(code)]; !taken {
			return string(code)
		}
	}
}
