package meeting

import (
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/errors"
)

// ChatLog is the append-only ordered log of chat messages scoped to one
// room. There is no delete or edit operation: the log doubles as a durable
// audit trail. Like the other per-room components it relies on the
// coordinator's serialization of mutations.
type ChatLog struct {
	roomID uuid.UUID

	// knownSender reports whether an id ever belonged to this room's
	// roster (past or current participants may still appear in history).
	knownSender func(uuid.UUID) bool

	messages []domain.ChatMessage // insertion order
	seq      int64
}

// NewChatLog creates an empty log for the room. knownSender is consulted
// on every append to reject messages from ids that never joined the room.
func NewChatLog(roomID uuid.UUID, knownSender func(uuid.UUID) bool) *ChatLog {
	return &ChatLog{
		roomID:      roomID,
		knownSender: knownSender,
	}
}

// Append adds a message to the log and returns the stored entry with its
// assigned id and insertion sequence. Fails with UNKNOWN_SENDER if the
// sender never matched a participant of this room. The entry starts with
// a pending write marker; MarkStored resolves it once the write-behind
// archive commits.
func (l *ChatLog) Append(senderID uuid.UUID, senderName, content string, sentAt time.Time) (domain.ChatMessage, error) {
	if !l.knownSender(senderID) {
		return domain.ChatMessage{}, errors.UnknownSenderError(senderID.String())
	}

	l.seq++
	msg := domain.ChatMessage{
		ID:         uuid.New(),
		RoomID:     l.roomID,
		Seq:        l.seq,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		SentAt:     sentAt,
		StoredAt:   domain.PendingWrite(),
	}
	l.messages = append(l.messages, msg)
	return msg, nil
}

// MarkStored resolves the write-behind marker of an archived message.
// Message identity and content stay immutable; only the commit metadata
// changes.
func (l *ChatLog) MarkStored(seq int64, committedAt time.Time) {
	for i := range l.messages {
		if l.messages[i].Seq == seq {
			l.messages[i].StoredAt = domain.ResolvedAt(committedAt)
			return
		}
	}
}

// Len returns the number of appended messages
func (l *ChatLog) Len() int {
	return len(l.messages)
}

// History returns the log in display order: timestamp ascending, ties
// broken by insertion sequence. The sequence is built over a point-in-time
// copy, so it is restartable and unaffected by later appends.
func (l *ChatLog) History() iter.Seq[domain.ChatMessage] {
	snapshot := l.ordered()
	return func(yield func(domain.ChatMessage) bool) {
		for _, msg := range snapshot {
			if !yield(msg) {
				return
			}
		}
	}
}

// HistoryPage returns one page of the display-ordered log along with the
// total message count, for HTTP pagination
func (l *ChatLog) HistoryPage(limit, offset int) ([]domain.ChatMessage, int) {
	ordered := l.ordered()
	total := len(ordered)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return ordered[offset:end], total
}

func (l *ChatLog) ordered() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(l.messages))
	copy(out, l.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}
