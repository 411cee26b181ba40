// Package activity persists notifications as a per-user feed and pushes them
// to connected clients.
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
)

// Publisher pushes a stored activity to its user's live connections.
type Publisher interface {
	Publish(ctx context.Context, activity *models.Activity) error
}

// Service is the notify.Sink behind the dispatcher.
type Service struct {
	store     storage.ActivityStore
	publisher Publisher
	logger    *slog.Logger
}

var _ notify.Sink = (*Service)(nil)

// NewService creates a Service. publisher may be nil when nothing is pushed.
func NewService(store storage.ActivityStore, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, publisher: publisher, logger: logger}
}

// Deliver stores the event in the user's feed, then publishes it. A publish
// failure is logged; the activity stays unread and is replayed on reconnect.
func (s *Service) Deliver(ctx context.Context, event notify.Event) error {
	activity := &models.Activity{
		UserID:      event.UserID,
		Action:      event.Action,
		Description: event.Description,
	}
	if err := s.store.CreateActivity(ctx, activity); err != nil {
		return fmt.Errorf("failed to store activity: %w", err)
	}

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, activity); err != nil {
		s.logger.Warn("Failed to publish activity", "activity_id", activity.ID, "user_id", activity.UserID, "error", err)
	}
	return nil
}

// List returns a user's feed, oldest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Activity, error) {
	activities, err := s.store.ListActivities(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// MarkRead marks activities of userID as read. No ids marks all of them.
func (s *Service) MarkRead(ctx context.Context, userID string, ids []string) error {
	if err := s.store.MarkActivitiesRead(ctx, userID, ids); err != nil {
		return fmt.Errorf("failed to mark activities read: %w", err)
	}
	return nil
}
