package cockroach

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meetspace-backend/internal/domain"
)

// RoomRepository archives meeting room lifecycle records in CockroachDB.
// The coordinator's in-memory state is authoritative; these rows exist for
// history queries after the room closes.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// SaveRoom upserts the room record with its current lifecycle state
func (r *RoomRepository) SaveRoom(ctx context.Context, room *domain.MeetingRoom) error {
	query := `
		UPSERT INTO rooms (
			room_id, name, meeting_code, host_id, state, started_at, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		room.ID,
		room.Name,
		room.MeetingCode,
		room.HostID,
		string(room.State),
		room.StartedAt,
		room.EndedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	return nil
}

// RecordJoin inserts a participation row for the joining participant
func (r *RoomRepository) RecordJoin(ctx context.Context, roomID uuid.UUID, participant domain.Participant) error {
	query := `
		UPSERT INTO room_participants (room_id, participant_id, display_name, is_host, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		roomID,
		participant.ID,
		participant.Name,
		participant.IsHost,
		participant.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record join: %w", err)
	}

	return nil
}

// RecordLeave stamps the participation row with the leave time
func (r *RoomRepository) RecordLeave(ctx context.Context, roomID, participantID uuid.UUID, leftAt time.Time) error {
	query := `
		UPDATE room_participants
		SET left_at = $3
		WHERE room_id = $1 AND participant_id = $2
	`

	_, err := r.pool.Exec(ctx, query, roomID, participantID, leftAt)
	if err != nil {
		return fmt.Errorf("failed to record leave: %w", err)
	}

	return nil
}

// GetByID retrieves an archived room by ID
func (r *RoomRepository) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.MeetingRoom, error) {
	query := `
		SELECT room_id, name, meeting_code, host_id, state, started_at, ended_at
		FROM rooms
		WHERE room_id = $1
	`

	room := &domain.MeetingRoom{}
	var state string
	err := r.pool.QueryRow(ctx, query, roomID).Scan(
		&room.ID,
		&room.Name,
		&room.MeetingCode,
		&room.HostID,
		&state,
		&room.StartedAt,
		&room.EndedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("room not found")
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	room.State = domain.RoomState(state)

	return room, nil
}

// GetParticipantRooms retrieves the rooms a participant attended,
// most recent first
func (r *RoomRepository) GetParticipantRooms(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*domain.MeetingRoom, error) {
	query := `
		SELECT r.room_id, r.name, r.meeting_code, r.host_id, r.state, r.started_at, r.ended_at
		FROM rooms r
		JOIN room_participants rp ON r.room_id = rp.room_id
		WHERE rp.participant_id = $1
		ORDER BY r.started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, participantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*domain.MeetingRoom
	for rows.Next() {
		room := &domain.MeetingRoom{}
		var state string
		err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.MeetingCode,
			&room.HostID,
			&state,
			&room.StartedAt,
			&room.EndedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		room.State = domain.RoomState(state)
		rooms = append(rooms, room)
	}

	return rooms, nil
}

// GetAttendance retrieves the participation rows of a room in join order
func (r *RoomRepository) GetAttendance(ctx context.Context, roomID uuid.UUID) ([]*domain.Attendance, error) {
	query := `
		SELECT room_id, participant_id, display_name, is_host, joined_at, left_at
		FROM room_participants
		WHERE room_id = $1
		ORDER BY joined_at ASC
	`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	defer rows.Close()

	var attendance []*domain.Attendance
	for rows.Next() {
		a := &domain.Attendance{}
		err := rows.Scan(
			&a.RoomID,
			&a.ParticipantID,
			&a.DisplayName,
			&a.IsHost,
			&a.JoinedAt,
			&a.LeftAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendance = append(attendance, a)
	}

	return attendance, nil
}
