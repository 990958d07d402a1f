package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campus-share/campus-share/internal/domain/notification"
)

// Service persists notifications and pushes best-effort live events.
// Emission never fails the caller: persistence or broadcast errors are
// logged and dropped.
type Service struct {
	repo   notification.Repository
	hub    notification.StreamHub
	logger zerolog.Logger
}

// NewService creates a notification service.
func NewService(repo notification.Repository, hub notification.StreamHub, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hub:    hub,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

// Input describes one notification to emit.
type Input struct {
	RecipientID uuid.UUID
	Type        notification.Type
	Title       string
	Message     string
	RelatedType string
	RelatedID   uuid.UUID
	DedupeKey   *string
	Room        string
}

// Notify persists the notification and broadcasts it. Fire-and-forget;
// reports whether a notification was actually created (false on error
// or when the dedupe key already delivered).
func (s *Service) Notify(ctx context.Context, in Input) bool {
	if in.DedupeKey != nil {
		since := time.Now().UTC().Add(-48 * time.Hour)
		existing, err := s.repo.FindByDedupeKey(ctx, *in.DedupeKey, since)
		if err != nil {
			s.logger.Warn().Err(err).Str("dedupe_key", *in.DedupeKey).Msg("dedupe lookup failed")
			return false
		}
		if existing != nil {
			return false
		}
	}

	n := notification.New(in.RecipientID, in.Type, in.Title, in.Message)
	if in.RelatedID != uuid.Nil {
		n.SetRelated(in.RelatedType, in.RelatedID)
	}
	if in.DedupeKey != nil {
		n.SetDedupeKey(*in.DedupeKey)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("recipient_id", in.RecipientID.String()).
			Str("type", string(in.Type)).
			Msg("failed to persist notification")
		return false
	}

	s.broadcast(n, in.Room)
	return true
}

func (s *Service) broadcast(n *notification.Notification, room string) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn().Err(err).Str("notification_id", n.NotificationID.String()).Msg("failed to marshal notification event")
		return
	}
	msg := notification.NewStreamMessage("notification", payload)
	s.hub.BroadcastToUser(n.RecipientID, msg)
	if room != "" {
		s.hub.BroadcastToRoom(room, msg)
	}
}

// List returns a user's notifications.
func (s *Service) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*notification.Notification, error) {
	filter := notification.Filter{RecipientID: &recipientID}
	if unreadOnly {
		unread := true
		filter.Unread = &unread
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// MarkRead marks one notification as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, notificationID, actorID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}
	if n.RecipientID != actorID {
		return nil
	}
	if n.IsRead {
		return nil
	}
	return s.repo.MarkRead(ctx, notificationID, time.Now().UTC())
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, recipientID, time.Now().UTC())
}

// CountUnread returns the user's unread notification count.
func (s *Service) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, recipientID)
}
