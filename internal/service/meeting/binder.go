package meeting

import (
	"context"

	"github.com/google/uuid"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/errors"
)

// StreamAcquirer negotiates a local or remote media stream. Acquisition is
// inherently asynchronous (device access, peer negotiation) and must honor
// the context's deadline and cancellation; the coordinator never holds a
// room lock while an acquisition is in flight.
type StreamAcquirer interface {
	Acquire(ctx context.Context, participantID uuid.UUID, kind domain.MediaKind) (domain.StreamHandle, error)

	// Release disposes a stream that was acquired but will not be kept
	// (unbind, failed commit). Implementations should treat unknown
	// handles as a no-op.
	Release(ctx context.Context, stream domain.StreamHandle)
}

// Binder associates media streams with participant entries and enforces
// the one-screen-stream-per-room rule. Like the registry it relies on the
// coordinator's per-room serialization instead of its own lock; the screen
// slot reservation is what makes the exclusivity check-and-set atomic with
// respect to concurrent toggle requests.
type Binder struct {
	registry *Registry
	bindings map[domain.MediaKind]map[uuid.UUID]domain.StreamHandle

	screenHolder   uuid.UUID // uuid.Nil while the slot is free
	screenReserved bool      // a reserve→commit sequence is in flight
}

// NewBinder creates a binder over the room's registry
func NewBinder(registry *Registry) *Binder {
	return &Binder{
		registry: registry,
		bindings: make(map[domain.MediaKind]map[uuid.UUID]domain.StreamHandle),
	}
}

// Bind attaches an already-acquired stream to a participant.
// Fails with PARTICIPANT_NOT_FOUND if the participant is absent and with
// SCREEN_SHARE_CONFLICT if kind is screen and the slot is held or reserved
// by another participant.
func (b *Binder) Bind(participantID uuid.UUID, kind domain.MediaKind, stream domain.StreamHandle) error {
	if !kind.Valid() {
		return errors.InvalidMediaKindError(string(kind))
	}
	if !b.registry.Has(participantID) {
		return errors.ParticipantNotFoundError(participantID.String())
	}
	if kind == domain.MediaKindScreen {
		if b.screenHolder != uuid.Nil && b.screenHolder != participantID {
			return errors.ScreenShareConflictError()
		}
		b.screenHolder = participantID
		b.screenReserved = false
	}
	if b.bindings[kind] == nil {
		b.bindings[kind] = make(map[uuid.UUID]domain.StreamHandle)
	}
	b.bindings[kind][participantID] = stream
	b.syncRegistry(participantID)
	return nil
}

// Unbind detaches a stream. Unbinding an already-unbound kind is a no-op,
// not an error; the return value reports whether anything was removed.
func (b *Binder) Unbind(participantID uuid.UUID, kind domain.MediaKind) (domain.StreamHandle, bool) {
	streams, ok := b.bindings[kind]
	if !ok {
		return domain.StreamHandle{}, false
	}
	stream, ok := streams[participantID]
	if !ok {
		return domain.StreamHandle{}, false
	}
	delete(streams, participantID)
	if kind == domain.MediaKindScreen && b.screenHolder == participantID {
		b.screenHolder = uuid.Nil
		b.screenReserved = false
	}
	b.syncRegistry(participantID)
	return stream, true
}

// UnbindAll detaches every stream of a leaving participant and returns the
// handles so the caller can release them
func (b *Binder) UnbindAll(participantID uuid.UUID) []domain.StreamHandle {
	var released []domain.StreamHandle
	for kind := range b.bindings {
		if stream, ok := b.Unbind(participantID, kind); ok {
			released = append(released, stream)
		}
	}
	if b.screenHolder == participantID {
		// Covers a reservation that never reached Bind.
		b.screenHolder = uuid.Nil
		b.screenReserved = false
	}
	return released
}

// ReserveScreen performs the atomic check-and-set on the screen slot
// before the (unlocked) acquisition starts. Fails with
// SCREEN_SHARE_CONFLICT if the slot is held or reserved by someone else.
func (b *Binder) ReserveScreen(participantID uuid.UUID) error {
	if !b.registry.Has(participantID) {
		return errors.ParticipantNotFoundError(participantID.String())
	}
	if b.screenHolder != uuid.Nil && b.screenHolder != participantID {
		return errors.ScreenShareConflictError()
	}
	b.screenHolder = participantID
	b.screenReserved = true
	return nil
}

// ReleaseScreenReservation rolls back a reservation whose acquisition
// failed or was cancelled. Only the reserving participant's reservation
// is cleared; a committed binding is left alone.
func (b *Binder) ReleaseScreenReservation(participantID uuid.UUID) {
	if b.screenReserved && b.screenHolder == participantID {
		b.screenHolder = uuid.Nil
		b.screenReserved = false
	}
}

// ScreenHolder returns the participant currently holding the committed
// screen slot, if any. A pending reservation is not reported: observers
// only ever see committed state.
func (b *Binder) ScreenHolder() (uuid.UUID, bool) {
	if b.screenHolder == uuid.Nil || b.screenReserved {
		return uuid.Nil, false
	}
	return b.screenHolder, true
}

// StreamsOf returns a copy of the participant's current bindings
func (b *Binder) StreamsOf(participantID uuid.UUID) map[domain.MediaKind]domain.StreamHandle {
	var out map[domain.MediaKind]domain.StreamHandle
	for kind, streams := range b.bindings {
		if stream, ok := streams[participantID]; ok {
			if out == nil {
				out = make(map[domain.MediaKind]domain.StreamHandle)
			}
			out[kind] = stream
		}
	}
	return out
}

// syncRegistry mirrors the binding state onto the roster entry so that
// registry snapshots carry the participant's streams
func (b *Binder) syncRegistry(participantID uuid.UUID) {
	b.registry.SetStreams(participantID, b.StreamsOf(participantID))
}
