// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// LongTimeout is for complex operations or batch processing
	LongTimeout = 60 * time.Second

	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute

	// SessionExpiry is the default session lifetime
	SessionExpiry = 30 * 24 * time.Hour // 30 days
)

// Database connection constants
const (
	// MaxConnLifetime is the maximum lifetime of a database connection
	MaxConnLifetime = 1 * time.Hour

	// MaxConnIdleTime is the maximum idle time for a database connection
	MaxConnIdleTime = 30 * time.Minute

	// HealthCheckPeriod is the interval between database health checks
	HealthCheckPeriod = 1 * time.Minute
)

// Meeting room constants
const (
	// MaxRoomParticipants is the maximum roster size of a meeting room
	MaxRoomParticipants = 100

	// MaxMeetingDuration is the maximum allowed meeting duration
	MaxMeetingDuration = 24 * time.Hour

	// MediaAcquireTimeout bounds a single media stream acquisition
	MediaAcquireTimeout = 10 * time.Second

	// MaxRoomNameLength is the maximum allowed room name length
	MaxRoomNameLength = 100

	// MaxParticipantNameLength is the maximum allowed participant display name length
	MaxParticipantNameLength = 100
)

// Presence constants
const (
	// PresenceTTL is the heartbeat expiry for a participant's presence key
	PresenceTTL = 45 * time.Second

	// PresenceHeartbeatInterval is the expected client heartbeat interval
	PresenceHeartbeatInterval = 15 * time.Second
)

// Push notification constants
const (
	// PushTokenExpiry is the validity period for push notification tokens
	PushTokenExpiry = 30 * 24 * time.Hour // 30 days
)

// Audit log constants
const (
	// AuditLogRetentionDays is the number of days audit logs are retained
	AuditLogRetentionDays = 90

	// AuditLogRetention is the duration audit logs are retained
	AuditLogRetention = AuditLogRetentionDays * 24 * time.Hour
)

// Pagination constants
const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 20

	// MaxPageSize is the maximum number of items per page
	MaxPageSize = 100

	// MinPageSize is the minimum number of items per page
	MinPageSize = 1
)

// Message constants
const (
	// MaxMessageLength is the maximum allowed chat message length
	MaxMessageLength = 10000
)
