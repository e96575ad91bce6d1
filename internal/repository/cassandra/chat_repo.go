package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"meetspace-backend/internal/domain"
	"meetspace-backend/pkg/metrics"
)

// ChatRepository archives meeting chat messages in Cassandra.
// Implements bucketing strategy for scalability
type ChatRepository struct {
	session *gocql.Session
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(session *gocql.Session) *ChatRepository {
	return &ChatRepository{session: session}
}

// SaveMessage inserts a message into the room's archive and returns the
// commit timestamp. The in-memory log stays authoritative; this write is
// the durable copy.
func (r *ChatRepository) SaveMessage(ctx context.Context, message *domain.ChatMessage) (time.Time, error) {
	bucket := domain.CalculateBucket(message.SentAt)

	query := `
		INSERT INTO messages_by_room (
			room_id, bucket, message_id, seq, sender_id, sender_name,
			content, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	err := r.session.Query(query,
		message.RoomID,
		bucket,
		message.ID,
		message.Seq,
		message.SenderID,
		message.SenderName,
		message.Content,
		message.SentAt,
	).WithContext(ctx).Exec()
	metrics.RecordCassandraQueryDuration("insert", "messages_by_room", time.Since(start).Seconds())

	if err != nil {
		metrics.RecordCassandraWriteError("messages_by_room", errorType(err))
		return time.Time{}, fmt.Errorf("failed to save message: %w", err)
	}

	metrics.RecordCassandraQuery("insert", "messages_by_room", "ok")
	return time.Now().UTC(), nil
}

// GetByRoom retrieves archived messages for a room within one bucket,
// using cursor-based pagination
func (r *ChatRepository) GetByRoom(
	ctx context.Context,
	roomID uuid.UUID,
	bucket int,
	limit int,
	pageState []byte,
) ([]*domain.ChatMessage, []byte, error) {
	query := `
		SELECT room_id, message_id, seq, sender_id, sender_name, content, sent_at
		FROM messages_by_room
		WHERE room_id = ? AND bucket = ?
		ORDER BY sent_at ASC
		LIMIT ?
	`

	iter := r.session.Query(query, roomID, bucket, limit).WithContext(ctx).PageState(pageState).Iter()

	var messages []*domain.ChatMessage
	for {
		message := &domain.ChatMessage{}
		var sentAt time.Time
		if !iter.Scan(
			&message.RoomID,
			&message.ID,
			&message.Seq,
			&message.SenderID,
			&message.SenderName,
			&message.Content,
			&sentAt,
		) {
			break
		}
		message.SentAt = sentAt
		// Anything read back from the archive was committed by definition.
		message.StoredAt = domain.ResolvedAt(sentAt)
		messages = append(messages, message)
	}

	nextPageState := iter.PageState()
	if err := iter.Close(); err != nil {
		metrics.RecordCassandraReadError("messages_by_room", errorType(err))
		return nil, nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, nextPageState, nil
}

// GetRoomHistory retrieves messages across the buckets covering the room's
// lifetime, oldest first
func (r *ChatRepository) GetRoomHistory(ctx context.Context, roomID uuid.UUID, startedAt, endedAt time.Time, limit int) ([]*domain.ChatMessage, error) {
	var all []*domain.ChatMessage

	for _, bucket := range bucketsForRange(startedAt, endedAt) {
		messages, _, err := r.GetByRoom(ctx, roomID, bucket, limit-len(all), nil)
		if err != nil {
			return nil, err
		}
		all = append(all, messages...)
		if len(all) >= limit {
			break
		}
	}

	return all, nil
}

// CountMessages counts archived messages in one bucket (expensive, use sparingly)
func (r *ChatRepository) CountMessages(ctx context.Context, roomID uuid.UUID, bucket int) (int, error) {
	query := `SELECT COUNT(*) FROM messages_by_room WHERE room_id = ? AND bucket = ?`

	var count int
	err := r.session.Query(query, roomID, bucket).WithContext(ctx).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}

// bucketsForRange generates the bucket list for a time range. Iteration
// starts from the first of the month so AddDate cannot normalize an
// end-of-month start past a short month and skip its bucket.
func bucketsForRange(startTime, endTime time.Time) []int {
	var buckets []int

	start := startTime.UTC()
	current := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := domain.CalculateBucket(endTime)
	for {
		bucket := domain.CalculateBucket(current)
		if bucket > end {
			break
		}
		buckets = append(buckets, bucket)
		current = current.AddDate(0, 1, 0)
	}

	return buckets
}

func errorType(err error) string {
	if err == gocql.ErrTimeoutNoResponse || err == gocql.ErrConnectionClosed {
		return "unavailable"
	}
	return "query"
}
