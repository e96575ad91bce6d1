package meeting

import (
	"github.com/google/uuid"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/errors"
)

// RosterChangeKind identifies the mutation behind a RosterChanged event
type RosterChangeKind string

const (
	RosterJoined          RosterChangeKind = "joined"
	RosterLeft            RosterChangeKind = "left"
	RosterFlagsUpdated    RosterChangeKind = "flags_updated"
	RosterHostChanged     RosterChangeKind = "host_changed"
	RosterSpeakingChanged RosterChangeKind = "speaking_changed"
)

// RosterChange describes a single registry mutation delivered to the
// change listener. Participant is a copy taken after the mutation applied.
type RosterChange struct {
	Kind        RosterChangeKind
	Participant domain.Participant
}

// Registry tracks the ordered set of participants in one meeting room and
// their per-participant flags. It is not internally synchronized: the
// coordinator serializes all mutations against a room, so the registry
// only has to keep its own invariants (unique ids, join order, at most
// one host).
type Registry struct {
	participants []domain.Participant // join order
	index        map[uuid.UUID]int
	onChange     func(RosterChange)
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[uuid.UUID]int),
	}
}

// SetChangeListener registers the RosterChanged subscriber. The listener
// is invoked synchronously after each applied mutation and must not call
// back into the registry.
func (r *Registry) SetChangeListener(fn func(RosterChange)) {
	r.onChange = fn
}

func (r *Registry) emit(kind RosterChangeKind, p domain.Participant) {
	if r.onChange != nil {
		r.onChange(RosterChange{Kind: kind, Participant: p.Clone()})
	}
}

// Add appends a participant to the roster in join order.
// Fails with PARTICIPANT_EXISTS if the id is already present.
func (r *Registry) Add(p domain.Participant) error {
	if _, ok := r.index[p.ID]; ok {
		return errors.DuplicateParticipantError(p.ID.String())
	}
	if p.IsHost {
		// At most one host per room; demote any existing holder first.
		for i := range r.participants {
			r.participants[i].IsHost = false
		}
	}
	r.index[p.ID] = len(r.participants)
	r.participants = append(r.participants, p)
	r.emit(RosterJoined, p)
	return nil
}

// RemoveResult reports the side effects of a removal
type RemoveResult struct {
	Removed   domain.Participant
	WasHost   bool
	NewHostID *uuid.UUID // set when the host role was reassigned
	Empty     bool       // set when no participants remain (RoomEmpty signal)
}

// Remove deletes a participant from the roster.
// Fails with PARTICIPANT_NOT_FOUND if absent. When the removed participant
// held the host role, the earliest-joined remaining participant is promoted;
// if none remain, Empty is set and the caller decides the room's fate.
func (r *Registry) Remove(id uuid.UUID) (RemoveResult, error) {
	pos, ok := r.index[id]
	if !ok {
		return RemoveResult{}, errors.ParticipantNotFoundError(id.String())
	}

	removed := r.participants[pos]
	r.participants = append(r.participants[:pos], r.participants[pos+1:]...)
	delete(r.index, id)
	for i := pos; i < len(r.participants); i++ {
		r.index[r.participants[i].ID] = i
	}

	result := RemoveResult{Removed: removed, WasHost: removed.IsHost}
	r.emit(RosterLeft, removed)

	if len(r.participants) == 0 {
		result.Empty = true
		return result, nil
	}

	if removed.IsHost {
		// Promote the earliest-joined remaining participant.
		r.participants[0].IsHost = true
		newHostID := r.participants[0].ID
		result.NewHostID = &newHostID
		r.emit(RosterHostChanged, r.participants[0])
	}

	return result, nil
}

// UpdateFlags merges a partial flag update into the participant's entry.
// The merge is atomic: either all supplied fields apply or none do.
// Fails with PARTICIPANT_NOT_FOUND if absent.
func (r *Registry) UpdateFlags(id uuid.UUID, update domain.FlagUpdate) error {
	pos, ok := r.index[id]
	if !ok {
		return errors.ParticipantNotFoundError(id.String())
	}
	if update.Empty() {
		return nil
	}
	p := &r.participants[pos]
	if update.IsMuted != nil {
		p.IsMuted = *update.IsMuted
	}
	if update.IsCameraOff != nil {
		p.IsCameraOff = *update.IsCameraOff
	}
	r.emit(RosterFlagsUpdated, *p)
	return nil
}

// SetSpeaking updates the transient speaking flag from audio-activity
// signals. Fails with PARTICIPANT_NOT_FOUND if absent.
func (r *Registry) SetSpeaking(id uuid.UUID, speaking bool) error {
	pos, ok := r.index[id]
	if !ok {
		return errors.ParticipantNotFoundError(id.String())
	}
	if r.participants[pos].IsSpeaking == speaking {
		return nil
	}
	r.participants[pos].IsSpeaking = speaking
	r.emit(RosterSpeakingChanged, r.participants[pos])
	return nil
}

// SetStreams replaces the bound-stream view on a participant entry.
// The binder owns stream state; this keeps the roster snapshot in sync.
func (r *Registry) SetStreams(id uuid.UUID, streams map[domain.MediaKind]domain.StreamHandle) {
	if pos, ok := r.index[id]; ok {
		r.participants[pos].Streams = streams
	}
}

// Get returns a copy of the participant entry
func (r *Registry) Get(id uuid.UUID) (domain.Participant, bool) {
	pos, ok := r.index[id]
	if !ok {
		return domain.Participant{}, false
	}
	return r.participants[pos].Clone(), true
}

// Has reports whether the participant is currently in the roster
func (r *Registry) Has(id uuid.UUID) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the current roster size
func (r *Registry) Len() int {
	return len(r.participants)
}

// HostID returns the current host, if any
func (r *Registry) HostID() (uuid.UUID, bool) {
	for i := range r.participants {
		if r.participants[i].IsHost {
			return r.participants[i].ID, true
		}
	}
	return uuid.Nil, false
}

// Snapshot returns a read-only deep copy of the roster in join order
func (r *Registry) Snapshot() []domain.Participant {
	out := make([]domain.Participant, len(r.participants))
	for i, p := range r.participants {
		out[i] = p.Clone()
	}
	return out
}
