package services

import (
	"context"
	"fmt"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultNotificationLimit = 50

// NotificationService stores in-app notifications and pushes them to live connections
type NotificationService struct {
	repos  *repositories.Repositories
	pusher Pusher
	now    Clock
	logger zerolog.Logger
}

// NewNotificationService creates a new NotificationService. pusher may be nil.
func NewNotificationService(repos *repositories.Repositories, pusher Pusher, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		repos:  repos,
		pusher: pusher,
		now:    utcNow,
		logger: logger.With().Str("service", "notifications").Logger(),
	}
}

// Notify stores a notification for uid and pushes it if the user is connected
func (s *NotificationService) Notify(ctx context.Context, uid, title, body string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserUID:   uid,
		Title:     title,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.repos.Notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if s.pusher != nil && !s.pusher.SendToUser(uid, websocket.Event{Type: "notification", Data: n}) {
		s.logger.Debug().Str("uid", uid).Msg("Live push skipped")
	}
	return n, nil
}

// List returns the newest notifications of uid
func (s *NotificationService) List(ctx context.Context, uid string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	return s.repos.Notifications.ListByUser(ctx, uid, limit)
}

// MarkRead marks one notification of uid as read
func (s *NotificationService) MarkRead(ctx context.Context, uid, id string) error {
	return s.repos.Notifications.MarkRead(ctx, uid, id)
}
