package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meetspace-backend/internal/domain"
	"meetspace-backend/internal/service/meeting"
	"meetspace-backend/pkg/logger"
	"meetspace-backend/pkg/metrics"
)

// Event types delivered to room clients
const (
	EventTypeRoomState   = "room_state"
	EventTypeChatMessage = "chat_message"
)

// Inbound message types accepted from room clients
const (
	InboundTypeSpeaking  = "speaking"
	InboundTypeHeartbeat = "heartbeat"
	InboundTypeSidebar   = "sidebar"
)

// Event is the envelope published to room channels and written to clients
type Event struct {
	Type      string          `json:"type"`
	RoomID    uuid.UUID       `json:"room_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// inboundMessage is what room clients may send upstream
type inboundMessage struct {
	Type     string `json:"type"`
	Speaking bool   `json:"speaking,omitempty"`
	Tab      string `json:"tab,omitempty"`
}

// PresenceTracker records participant liveness from connection heartbeats
type PresenceTracker interface {
	MarkPresent(ctx context.Context, roomID, participantID uuid.UUID) error
	Heartbeat(ctx context.Context, roomID, participantID uuid.UUID) error
	MarkGone(ctx context.Context, roomID, participantID uuid.UUID) error
}

// RoomHub manages WebSocket connections for meeting rooms. It implements
// the coordinator's Notifier: notifications are published to a per-room
// Redis channel and fanned out to local clients by the room subscription,
// so every service instance delivers the same stream.
type RoomHub struct {
	// Registered clients per room
	rooms map[uuid.UUID]map[*RoomClient]bool

	// Redis client for Pub/Sub
	redisClient *redis.Client

	coordinator *meeting.Coordinator
	presence    PresenceTracker

	mu sync.RWMutex

	register   chan *RoomClient
	unregister chan *RoomClient
	broadcast  chan *Event

	// Outbound events waiting for the publisher goroutine. Notifier
	// callbacks enqueue here so a slow Redis never stalls a room mutation.
	publishQueue chan *Event

	// Per-room subscription cancel funcs
	subscriptions map[uuid.UUID]context.CancelFunc
}

// RoomClient represents one participant's WebSocket connection
type RoomClient struct {
	hub           *RoomHub
	conn          *websocket.Conn
	send          chan []byte
	roomID        uuid.UUID
	participantID uuid.UUID

	// sidebarTab controls which event stream the client receives chat
	// events on; roster snapshots are always delivered
	tabMu      sync.RWMutex
	sidebarTab domain.SidebarTab
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev, restrict in production
	},
}

// NewRoomHub creates a new room hub
func NewRoomHub(redisClient *redis.Client, coordinator *meeting.Coordinator, presence PresenceTracker) *RoomHub {
	hub := &RoomHub{
		rooms:         make(map[uuid.UUID]map[*RoomClient]bool),
		redisClient:   redisClient,
		coordinator:   coordinator,
		presence:      presence,
		register:      make(chan *RoomClient),
		unregister:    make(chan *RoomClient),
		broadcast:     make(chan *Event, 256),
		publishQueue:  make(chan *Event, 256),
		subscriptions: make(map[uuid.UUID]context.CancelFunc),
	}

	go hub.run()
	go hub.publishLoop()

	return hub
}

// RoomChanged implements meeting.Notifier. Snapshots where the room is
// ending also tear down the room's connections after delivery.
func (h *RoomHub) RoomChanged(snapshot *domain.RoomSnapshot) {
	h.publish(snapshot.Room.ID, EventTypeRoomState, snapshot)

	if !snapshot.Room.State.AcceptsIntents() {
		go h.closeRoom(snapshot.Room.ID)
	}
}

// ChatAppended implements meeting.Notifier
func (h *RoomHub) ChatAppended(roomID uuid.UUID, message domain.ChatMessage) {
	h.publish(roomID, EventTypeChatMessage, message)
}

// publish hands the event to the publisher goroutine. Never blocks: the
// coordinator calls this while holding the room mutex.
func (h *RoomHub) publish(roomID uuid.UUID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal room event", zap.Error(err))
		return
	}
	event := &Event{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}

	select {
	case h.publishQueue <- event:
	default:
		metrics.RoomNotificationDroppedTotal.WithLabelValues("publish_backlog").Inc()
		logger.Warn("room event dropped, publish queue full",
			zap.String("room_id", roomID.String()),
			zap.String("type", eventType))
	}
}

// publishLoop drains the publish queue onto the rooms' Redis channels,
// in enqueue order so snapshot versions stay monotonic per room
func (h *RoomHub) publishLoop() {
	for event := range h.publishQueue {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			logger.Error("failed to marshal room event envelope", zap.Error(err))
			continue
		}

		if err := h.redisClient.Publish(context.Background(), roomChannel(event.RoomID), eventJSON).Err(); err != nil {
			logger.Warn("room event publish failed",
				zap.String("room_id", event.RoomID.String()),
				zap.Error(err))
			// Deliver locally so single-instance deployments keep working
			// when Redis is down.
			h.broadcast <- event
		}
	}
}

func roomChannel(roomID uuid.UUID) string {
	return fmt.Sprintf("room:events:%s", roomID)
}

// run handles hub operations
func (h *RoomHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.roomID] == nil {
				h.rooms[client.roomID] = make(map[*RoomClient]bool)

				ctx, cancel := context.WithCancel(context.Background())
				h.subscriptions[client.roomID] = cancel
				go h.subscribeToRoom(ctx, client.roomID)
			}
			h.rooms[client.roomID][client] = true
			h.mu.Unlock()

			metrics.RoomWebSocketConnections.Inc()
			metrics.RoomWebSocketConnectionTotal.WithLabelValues("accepted").Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.roomID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					metrics.RoomWebSocketConnections.Dec()

					if len(clients) == 0 {
						delete(h.rooms, client.roomID)
						if cancel, ok := h.subscriptions[client.roomID]; ok {
							cancel()
							delete(h.subscriptions, client.roomID)
						}
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// deliver writes an event to the room's local clients, honoring each
// client's sidebar tab for chat events
func (h *RoomHub) deliver(event *Event) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.rooms[event.RoomID]
	if !ok {
		return
	}
	for client := range clients {
		if event.Type == EventTypeChatMessage && !client.wantsChat() {
			continue
		}
		select {
		case client.send <- eventJSON:
			metrics.RoomWebSocketMessagesTotal.WithLabelValues("out").Inc()
		default:
			// Slow client: drop the connection rather than block the hub.
			metrics.RoomNotificationDroppedTotal.WithLabelValues("slow_client").Inc()
			close(client.send)
			delete(clients, client)
		}
	}
}

// subscribeToRoom fans the room's Redis channel into the local broadcast
func (h *RoomHub) subscribeToRoom(ctx context.Context, roomID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, roomChannel(roomID))
	defer pubsub.Close()

	metrics.RoomRedisSubscriptionActive.Inc()
	defer metrics.RoomRedisSubscriptionActive.Dec()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("failed to unmarshal room event",
					zap.String("room_id", roomID.String()),
					zap.Error(err))
				continue
			}
			h.broadcast <- &event
		}
	}
}

// closeRoom disconnects every client of an ended room
func (h *RoomHub) closeRoom(roomID uuid.UUID) {
	h.mu.Lock()
	clients := h.rooms[roomID]
	delete(h.rooms, roomID)
	if cancel, ok := h.subscriptions[roomID]; ok {
		cancel()
		delete(h.subscriptions, roomID)
	}
	h.mu.Unlock()

	for client := range clients {
		close(client.send)
		metrics.RoomWebSocketConnections.Dec()
		metrics.RoomWebSocketDisconnectionTotal.WithLabelValues("room_ended").Inc()
	}
}

// ServeWS upgrades the connection and attaches the participant's client
// to the room stream. The participant must already have joined the room
// over HTTP; the connection only carries events and lightweight signals.
func (h *RoomHub) ServeWS(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	participantIDVal, exists := c.Get("user_id")
	if !exists {
		metrics.RoomWebSocketConnectionTotal.WithLabelValues("unauthorized").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	participantID, ok := participantIDVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user id"})
		return
	}

	// Reject connections for rooms that are gone or ended
	snapshot, err := h.coordinator.Snapshot(roomID)
	if err != nil || !snapshot.Room.State.AcceptsIntents() {
		metrics.RoomWebSocketConnectionTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusGone, gin.H{"error": "room is not active"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &RoomClient{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		roomID:        roomID,
		participantID: participantID,
		sidebarTab:    domain.SidebarTabParticipants,
	}

	if h.presence != nil {
		if err := h.presence.MarkPresent(c.Request.Context(), roomID, participantID); err != nil {
			logger.Warn("failed to mark presence",
				zap.String("participant_id", participantID.String()),
				zap.Error(err))
		}
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *RoomClient) wantsChat() bool {
	c.tabMu.RLock()
	defer c.tabMu.RUnlock()
	return c.sidebarTab == domain.SidebarTabChat
}

func (c *RoomClient) setTab(tab domain.SidebarTab) {
	c.tabMu.Lock()
	c.sidebarTab = tab
	c.tabMu.Unlock()
}

// readPump reads signals from the WebSocket. A closed connection counts
// as the participant leaving the room.
func (c *RoomClient) readPump() {
	defer func() {
		c.hub.unregister <- c

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if c.hub.presence != nil {
			_ = c.hub.presence.MarkGone(ctx, c.roomID, c.participantID)
		}
		if err := c.hub.coordinator.Leave(ctx, c.roomID, c.participantID); err != nil {
			logger.Debug("leave on disconnect skipped",
				zap.String("participant_id", c.participantID.String()),
				zap.Error(err))
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
				metrics.RoomWebSocketDisconnectionTotal.WithLabelValues("error").Inc()
			} else {
				metrics.RoomWebSocketDisconnectionTotal.WithLabelValues("closed").Inc()
			}
			break
		}
		metrics.RoomWebSocketMessagesTotal.WithLabelValues("in").Inc()

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug("invalid room message format", zap.Error(err))
			continue
		}
		c.handleInbound(&msg)
	}
}

// handleInbound applies a client signal
func (c *RoomClient) handleInbound(msg *inboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Type {
	case InboundTypeSpeaking:
		if err := c.hub.coordinator.SetSpeaking(ctx, c.roomID, c.participantID, msg.Speaking); err != nil {
			logger.Debug("speaking signal rejected",
				zap.String("participant_id", c.participantID.String()),
				zap.Error(err))
		}
	case InboundTypeHeartbeat:
		if c.hub.presence != nil {
			_ = c.hub.presence.Heartbeat(ctx, c.roomID, c.participantID)
		}
	case InboundTypeSidebar:
		tab := domain.SidebarTab(msg.Tab)
		if tab.Valid() {
			c.setTab(tab)
		}
	}
}

// writePump writes events to the WebSocket
func (c *RoomClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
