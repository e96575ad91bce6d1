package ws

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	os.Exit(m.Run())
}

// unreachableRedis returns a client whose every command fails fast
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

// TestRoomChangedDoesNotBlockOnRedis verifies that notifier callbacks
// return immediately even when Redis is unreachable. The coordinator
// invokes them while holding the room mutex, so a stalled publish would
// stall every mutation on the room.
func TestRoomChangedDoesNotBlockOnRedis(t *testing.T) {
	hub := NewRoomHub(unreachableRedis(), nil, nil)

	snapshot := &domain.RoomSnapshot{
		Room: domain.MeetingRoom{
			ID:    uuid.New(),
			State: domain.RoomStateActive,
		},
		Version: 1,
		TakenAt: time.Now().UTC(),
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			hub.RoomChanged(snapshot)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier callbacks blocked behind Redis publish")
	}
}

// TestChatAppendedDoesNotBlockOnRedis covers the chat notification path
func TestChatAppendedDoesNotBlockOnRedis(t *testing.T) {
	hub := NewRoomHub(unreachableRedis(), nil, nil)

	roomID := uuid.New()
	message := domain.ChatMessage{
		ID:         uuid.New(),
		RoomID:     roomID,
		SenderID:   uuid.New(),
		SenderName: "nguyen",
		Content:    "hello",
		Seq:        1,
		SentAt:     time.Now().UTC(),
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			hub.ChatAppended(roomID, message)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("chat notifications blocked behind Redis publish")
	}
}

// TestRoomChannelName pins the channel naming scheme shared with the
// per-room subscribers
func TestRoomChannelName(t *testing.T) {
	roomID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "room:events:6ba7b810-9dad-11d1-80b4-00c04fd430c8", roomChannel(roomID))
}
