package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, notificationID uuid.UUID) (*Notification, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Notification, error)
	FindByDedupeKey(ctx context.Context, dedupeKey string, since time.Time) (*Notification, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID, readAt time.Time) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) error
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
}

// StreamHub defines the interface for managing live event streams.
type StreamHub interface {
	Register(client *StreamClient)
	Unregister(clientID string)
	GetClientCount() int

	BroadcastToUser(userID uuid.UUID, message *StreamMessage)
	BroadcastToRoom(room string, message *StreamMessage)
	SendToClient(clientID string, message *StreamMessage) error

	Stop()
}
