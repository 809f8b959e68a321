package notification

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type realtimeSender interface {
	SendToUserJSON(userID uuid.UUID, payload any) error
}

// Service handles notification logic
type Service struct {
	repo     Repository
	realtime realtimeSender
}

// NewService creates notification service. realtime may be nil.
func NewService(repo Repository, realtime realtimeSender) *Service {
	return &Service{repo: repo, realtime: realtime}
}

// Notify stores a notification and pushes it over websocket. It is
// fire-and-forget: failures are logged and swallowed so reward paths never
// block on delivery.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      Type(notifType),
		Title:     title,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if body != "" {
		n.Body = sql.NullString{String: body, Valid: true}
	}
	n.SetData(metadata)

	if err := s.repo.Create(ctx, n); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("type", notifType).
			Msg("failed to store notification")
		return
	}

	if s.realtime != nil {
		unread, _ := s.repo.CountUnreadByUser(ctx, userID)
		payload := map[string]interface{}{
			"type": "notification:new",
			"data": map[string]interface{}{
				"notification": n,
				"unread_count": unread,
			},
		}
		if err := s.realtime.SendToUserJSON(userID, payload); err != nil {
			log.Debug().Err(err).Str("user_id", userID.String()).Msg("realtime push failed")
		}
	}
}

// List returns notifications for user
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetUnreadCount returns unread count
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnreadByUser(ctx, userID)
}

// MarkAsRead marks single notification as read
func (s *Service) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
