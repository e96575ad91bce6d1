package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WriteTime records whether a write-behind persistence of a record has
// completed. It is the explicit union of "pending" and "resolved at T",
// so the core never needs a database client type to express commit state.
type WriteTime struct {
	at       time.Time
	resolved bool
}

// PendingWrite returns a WriteTime marking a not-yet-committed record
func PendingWrite() WriteTime {
	return WriteTime{}
}

// ResolvedAt returns a WriteTime marking a record committed at t
func ResolvedAt(t time.Time) WriteTime {
	return WriteTime{at: t, resolved: true}
}

// Resolved reports whether the write has been committed
func (w WriteTime) Resolved() bool {
	return w.resolved
}

// Time returns the commit timestamp; ok is false while the write is pending
func (w WriteTime) Time() (t time.Time, ok bool) {
	return w.at, w.resolved
}

// MarshalJSON encodes the union as {"status":"pending"} or
// {"status":"resolved","time":...}
func (w WriteTime) MarshalJSON() ([]byte, error) {
	if !w.resolved {
		return json.Marshal(map[string]string{"status": "pending"})
	}
	return json.Marshal(map[string]any{"status": "resolved", "time": w.at})
}

// CalculateBucket maps a timestamp to its monthly archive bucket (YYYYMM).
// Bucketing keeps Cassandra partitions bounded for long-lived rooms.
func CalculateBucket(t time.Time) int {
	return t.UTC().Year()*100 + int(t.UTC().Month())
}

// ChatMessage represents one immutable entry in a room's chat log
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	Seq        int64     `json:"seq"` // per-room insertion sequence, breaks timestamp ties
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`

	// StoredAt tracks the write-behind archive commit; it is persistence
	// metadata, not part of the message identity or display ordering.
	StoredAt WriteTime `json:"stored_at"`
}

// Before reports whether m sorts before other in display order:
// by timestamp, ties broken by insertion sequence.
func (m ChatMessage) Before(other ChatMessage) bool {
	if m.SentAt.Equal(other.SentAt) {
		return m.Seq < other.Seq
	}
	return m.SentAt.Before(other.SentAt)
}
