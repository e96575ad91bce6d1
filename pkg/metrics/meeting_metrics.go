package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Meeting metrics for monitoring room lifecycle, media binding, and chat
var (
	// Room lifecycle metrics
	MeetingRoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meeting_rooms_active",
		Help: "Current number of active meeting rooms",
	})

	MeetingRoomsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_rooms_created_total",
		Help: "Total number of meeting rooms created",
	})

	MeetingRoomsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_rooms_closed_total",
		Help: "Total number of meeting rooms closed",
	}, []string{"reason"}) // "empty", "host_ended", "shutdown"

	// Roster metrics
	MeetingParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meeting_participants",
		Help: "Current number of participants across all rooms",
	})

	MeetingJoinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_joins_total",
		Help: "Total number of participant joins",
	})

	MeetingLeavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_leaves_total",
		Help: "Total number of participant leaves",
	})

	// Media binding metrics
	MediaAcquireDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meeting_media_acquire_duration_seconds",
		Help:    "Time taken to acquire a media stream",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"kind"})

	MediaAcquireTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_media_acquire_timeouts_total",
		Help: "Total number of media acquisitions that hit the deadline",
	})

	// Screen share metrics
	ScreenSharesStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_screen_shares_started_total",
		Help: "Total number of screen shares started",
	})

	ScreenShareConflictTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_screen_share_conflict_total",
		Help: "Total number of screen share attempts rejected while another participant held the slot",
	})

	// Chat metrics
	ChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_chat_messages_total",
		Help: "Total number of chat messages appended",
	})

	ChatMessagesArchivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_chat_messages_archived_total",
		Help: "Total number of chat messages persisted to Cassandra",
	}, []string{"status"})

	// Notification fan-out metrics
	RoomNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_room_notifications_total",
		Help: "Total number of coalesced room snapshots broadcast",
	})

	RoomNotificationDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_room_notification_dropped_total",
		Help: "Total number of notifications dropped to slow clients",
	}, []string{"reason"})

	// WebSocket lifecycle metrics
	RoomWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meeting_websocket_connections",
		Help: "Current number of active room WebSocket connections",
	})

	RoomWebSocketConnectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_websocket_connection_total",
		Help: "Total number of room WebSocket connections",
	}, []string{"status"})

	RoomWebSocketDisconnectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_websocket_disconnection_total",
		Help: "Total number of room WebSocket disconnections",
	}, []string{"reason"})

	RoomWebSocketMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_websocket_messages_total",
		Help: "Total number of room WebSocket messages",
	}, []string{"direction"}) // "in" for received, "out" for sent

	RoomRedisSubscriptionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meeting_redis_subscription_active",
		Help: "Current number of active per-room Redis subscriptions",
	})
)
