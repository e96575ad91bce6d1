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

func newTestChatLog(known ...uuid.UUID) *ChatLog {
	set := make(map[uuid.UUID]bool, len(known))
	for _, id := range known {
		set[id] = true
	}
	return NewChatLog(uuid.New(), func(id uuid.UUID) bool { return set[id] })
}

// TestChatLogAppend tests appending and sequence assignment
func TestChatLogAppend(t *testing.T) {
	sender := uuid.New()
	log := newTestChatLog(sender)
	now := time.Now().UTC()

	first, err := log.Append(sender, "alice", "hello", now)
	require.NoError(t, err)
	second, err := log.Append(sender, "alice", "world", now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, log.Len())

	// New messages carry an unresolved write marker
	assert.False(t, first.StoredAt.Resolved())
}

// TestChatLogUnknownSender tests rejection of a sender that never joined
func TestChatLogUnknownSender(t *testing.T) {
	log := newTestChatLog(uuid.New())

	_, err := log.Append(uuid.New(), "ghost", "boo", time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownSender))
	assert.Equal(t, 0, log.Len())
}

// TestChatLogOrdering tests display ordering by timestamp with insertion
// sequence as the tiebreak
func TestChatLogOrdering(t *testing.T) {
	sender := uuid.New()
	log := newTestChatLog(sender)
	base := time.Now().UTC()

	// Append out of timestamp order; equal timestamps keep insertion order
	_, err := log.Append(sender, "alice", "second", base.Add(time.Second))
	require.NoError(t, err)
	_, err = log.Append(sender, "alice", "first", base)
	require.NoError(t, err)
	_, err = log.Append(sender, "alice", "third", base.Add(time.Second))
	require.NoError(t, err)

	var contents []string
	for msg := range log.History() {
		contents = append(contents, msg.Content)
	}
	assert.Equal(t, []string{"first", "second", "third"}, contents)
}

// TestChatLogHistoryRestartable tests that the history sequence can be
// iterated more than once and is unaffected by later appends
func TestChatLogHistoryRestartable(t *testing.T) {
	sender := uuid.New()
	log := newTestChatLog(sender)
	now := time.Now().UTC()

	_, err := log.Append(sender, "alice", "one", now)
	require.NoError(t, err)
	history := log.History()

	count := 0
	for range history {
		count++
	}
	assert.Equal(t, 1, count)

	// Appending after the sequence was built does not change it
	_, err = log.Append(sender, "alice", "two", now.Add(time.Second))
	require.NoError(t, err)

	count = 0
	for range history {
		count++
	}
	assert.Equal(t, 1, count)

	// Early break then restart works
	for range history {
		break
	}
	count = 0
	for range history {
		count++
	}
	assert.Equal(t, 1, count)
}

// TestChatLogMarkStored tests resolving the write-behind marker
func TestChatLogMarkStored(t *testing.T) {
	sender := uuid.New()
	log := newTestChatLog(sender)
	now := time.Now().UTC()

	msg, err := log.Append(sender, "alice", "hello", now)
	require.NoError(t, err)

	committed := now.Add(50 * time.Millisecond)
	log.MarkStored(msg.Seq, committed)

	var stored domain.ChatMessage
	for m := range log.History() {
		stored = m
	}
	storedAt, ok := stored.StoredAt.Time()
	require.True(t, ok)
	assert.Equal(t, committed, storedAt)

	// Content and identity stay immutable
	assert.Equal(t, msg.ID, stored.ID)
	assert.Equal(t, "hello", stored.Content)
}

// TestChatLogHistoryPage tests pagination over the display order
func TestChatLogHistoryPage(t *testing.T) {
	sender := uuid.New()
	log := newTestChatLog(sender)
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		_, err := log.Append(sender, "alice", "msg", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	page, total := log.HistoryPage(2, 0)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(1), page[0].Seq)

	page, total = log.HistoryPage(2, 4)
	assert.Equal(t, 5, total)
	require.Len(t, page, 1)
	assert.Equal(t, int64(5), page[0].Seq)

	page, _ = log.HistoryPage(2, 10)
	assert.Empty(t, page)
}
