package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind identifies one of a participant's media tracks
type MediaKind string

const (
	MediaKindCamera     MediaKind = "camera"
	MediaKindMicrophone MediaKind = "microphone"
	MediaKindScreen     MediaKind = "screen"
)

// Valid reports whether k is one of the known media kinds
func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindCamera, MediaKindMicrophone, MediaKindScreen:
		return true
	}
	return false
}

// StreamHandle is an opaque reference to a negotiated media stream.
// The actual transport (peer connection, SFU track) lives outside the core.
type StreamHandle struct {
	ID   string    `json:"id"`
	Kind MediaKind `json:"kind"`
}

// Participant represents one user's presence and media/UI flags within a room
type Participant struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"` // supplied by the profile service, opaque to the core
	IsMuted     bool      `json:"is_muted"`
	IsCameraOff bool      `json:"is_camera_off"`
	IsHost      bool      `json:"is_host"`
	IsSpeaking  bool      `json:"is_speaking"` // transient, recomputed from audio activity, never persisted
	JoinedAt    time.Time `json:"joined_at"`

	// Streams holds the participant's currently bound media streams by kind
	Streams map[MediaKind]StreamHandle `json:"streams,omitempty"`
}

// Clone returns a deep copy safe to hand out in snapshots
func (p Participant) Clone() Participant {
	cp := p
	if p.AvatarURL != nil {
		avatar := *p.AvatarURL
		cp.AvatarURL = &avatar
	}
	if p.Streams != nil {
		cp.Streams = make(map[MediaKind]StreamHandle, len(p.Streams))
		for k, v := range p.Streams {
			cp.Streams[k] = v
		}
	}
	return cp
}

// FlagUpdate is a partial update of a participant's toggleable flags.
// Nil fields are left untouched; the merge is applied atomically.
type FlagUpdate struct {
	IsMuted     *bool `json:"is_muted,omitempty"`
	IsCameraOff *bool `json:"is_camera_off,omitempty"`
}

// Empty reports whether the update would change nothing
func (u FlagUpdate) Empty() bool {
	return u.IsMuted == nil && u.IsCameraOff == nil
}

// SidebarTab enumerates the meeting sidebar views a client can subscribe to
type SidebarTab string

const (
	SidebarTabParticipants SidebarTab = "participants"
	SidebarTabChat         SidebarTab = "chat"
)

// Valid reports whether t is one of the known sidebar tabs
func (t SidebarTab) Valid() bool {
	return t == SidebarTabParticipants || t == SidebarTabChat
}
