package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meetspace-backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider defines interface for sending push notifications
type Provider interface {
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
}

// SendResult contains the result of a push notification send operation
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	Errors        []error
}

// Notification represents a push notification
type Notification struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Priority    string            `json:"priority,omitempty"` // high, normal, low
	Sound       string            `json:"sound,omitempty"`
	Badge       *int              `json:"badge,omitempty"`
	Category    string            `json:"category,omitempty"`
	ClickAction string            `json:"click_action,omitempty"`
}

// MeetingInviteData contains data for a meeting invitation notification
type MeetingInviteData struct {
	RoomID      uuid.UUID `json:"room_id"`
	RoomName    string    `json:"room_name"`
	MeetingCode string    `json:"meeting_code"`
	HostID      uuid.UUID `json:"host_id"`
	HostName    string    `json:"host_name"`
	Timestamp   int64     `json:"timestamp"`
}

// TokenType represents the type of push notification token
type TokenType string

const (
	TokenTypeFCM TokenType = "fcm" // Firebase Cloud Messaging
	TokenTypeWeb TokenType = "web" // Web Push
)

// Token represents a push notification token for a user
type Token struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	Type      TokenType `json:"type"`
	DeviceID  string    `json:"device_id,omitempty"`
	Platform  string    `json:"platform,omitempty"` // ios, android, web
	Active    bool      `json:"active"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// TokenRepository defines interface for storing and retrieving push tokens
type TokenRepository interface {
	Store(ctx context.Context, token *Token) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Token, error)
	GetByToken(ctx context.Context, token string) (*Token, error)
	Update(ctx context.Context, token *Token) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	MarkInactive(ctx context.Context, token string) error
}

// Service handles push notification operations
type Service struct {
	provider Provider
	repo     TokenRepository
}

// NewService creates a new push notification service
func NewService(provider Provider, repo TokenRepository) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
	}
}

// RegisterToken registers a new push notification token for a user
func (s *Service) RegisterToken(ctx context.Context, token *Token) error {
	// Update the existing record when the token value is already known
	existing, err := s.repo.GetByToken(ctx, token.Token)
	if err == nil && existing != nil {
		existing.Active = true
		existing.UpdatedAt = time.Now().Unix()
		existing.DeviceID = token.DeviceID
		existing.Platform = token.Platform
		return s.repo.Update(ctx, existing)
	}

	return s.repo.Store(ctx, token)
}

// UnregisterAllTokens removes all tokens for a user
func (s *Service) UnregisterAllTokens(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

// SendMeetingInvite notifies invitees that a meeting has started
func (s *Service) SendMeetingInvite(ctx context.Context, data *MeetingInviteData, inviteeIDs []uuid.UUID) error {
	notification := &Notification{
		Title:    fmt.Sprintf("%s invited you to a meeting", data.HostName),
		Body:     data.RoomName,
		Priority: "high",
		Sound:    "default",
		Category: "meeting_invite",
		Data: map[string]string{
			"type":         "meeting_invite",
			"room_id":      data.RoomID.String(),
			"room_name":    data.RoomName,
			"meeting_code": data.MeetingCode,
			"host_id":      data.HostID.String(),
			"host_name":    data.HostName,
			"timestamp":    fmt.Sprintf("%d", data.Timestamp),
		},
	}

	return s.sendToUsers(ctx, notification, inviteeIDs)
}

// SendMeetingEndedNotification notifies attendees that a meeting ended
func (s *Service) SendMeetingEndedNotification(ctx context.Context, roomID uuid.UUID, roomName string, participantIDs []uuid.UUID) error {
	notification := &Notification{
		Title: "Meeting ended",
		Body:  roomName,
		Data: map[string]string{
			"type":    "meeting_ended",
			"room_id": roomID.String(),
		},
	}

	return s.sendToUsers(ctx, notification, participantIDs)
}

// SendCustomNotification sends an arbitrary notification to a set of users
func (s *Service) SendCustomNotification(ctx context.Context, notification *Notification, userIDs []uuid.UUID) error {
	return s.sendToUsers(ctx, notification, userIDs)
}

// sendToUsers resolves the users' active tokens and delivers the
// notification, deactivating tokens the provider reports as invalid
func (s *Service) sendToUsers(ctx context.Context, notification *Notification, userIDs []uuid.UUID) error {
	var tokens []string
	for _, userID := range userIDs {
		userTokens, err := s.repo.GetByUserID(ctx, userID)
		if err != nil {
			logger.Warn("Failed to get push tokens for user",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}
		for _, t := range userTokens {
			if t.Active {
				tokens = append(tokens, t.Token)
			}
		}
	}

	if len(tokens) == 0 {
		logger.Debug("No active push tokens for notification",
			zap.String("title", notification.Title),
			zap.Int("user_count", len(userIDs)))
		return nil
	}

	result, err := s.provider.Send(ctx, notification, tokens)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}

	if len(result.InvalidTokens) > 0 {
		s.handleInvalidTokens(ctx, result.InvalidTokens)
	}

	return nil
}

// handleInvalidTokens marks invalid tokens as inactive
func (s *Service) handleInvalidTokens(ctx context.Context, invalidTokens []string) {
	for _, token := range invalidTokens {
		if err := s.repo.MarkInactive(ctx, token); err != nil {
			logger.Warn("Failed to mark push token inactive",
				zap.Error(err))
		}
	}
}

// GetTokensByUserID retrieves all tokens for a user
func (s *Service) GetTokensByUserID(ctx context.Context, userID uuid.UUID) ([]*Token, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// MockProvider is a mock implementation for development/testing
type MockProvider struct {
	SentNotifications []*Notification
}

// Send implements Provider interface
func (m *MockProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	m.SentNotifications = append(m.SentNotifications, notification)
	logger.Info("Mock push notification sent",
		zap.String("title", notification.Title),
		zap.Int("token_count", len(tokens)))
	return &SendResult{SuccessCount: len(tokens)}, nil
}

// ToJSON converts notification to JSON
func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// FromJSON creates notification from JSON
func FromJSON(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
