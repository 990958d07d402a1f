package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type enumerates notification kinds emitted by lifecycle transitions.
type Type string

const (
	TypeRequestReceived      Type = "REQUEST_RECEIVED"
	TypeRequestAccepted      Type = "REQUEST_ACCEPTED"
	TypeRequestRejected      Type = "REQUEST_REJECTED"
	TypeRequestCancelled     Type = "REQUEST_CANCELLED"
	TypeOfferReceived        Type = "OFFER_RECEIVED"
	TypeOfferAccepted        Type = "OFFER_ACCEPTED"
	TypeOfferRejected        Type = "OFFER_REJECTED"
	TypeAgreementProposed    Type = "AGREEMENT_PROPOSED"
	TypeAgreementConfirmed   Type = "AGREEMENT_CONFIRMED"
	TypeClaimReceived        Type = "CLAIM_RECEIVED"
	TypeClaimConfirmed       Type = "CLAIM_CONFIRMED"
	TypeClaimCompleted       Type = "CLAIM_COMPLETED"
	TypeReturnRequested      Type = "RETURN_REQUESTED"
	TypeReturnConfirmed      Type = "RETURN_CONFIRMED"
	TypeTransactionCancelled Type = "TRANSACTION_CANCELLED"
	TypeTransactionCompleted Type = "TRANSACTION_COMPLETED"
	TypeDisputeRaised        Type = "DISPUTE_RAISED"
	TypeReturnReminder       Type = "RETURN_REMINDER"
	TypeReturnOverdue        Type = "RETURN_OVERDUE"
)

var (
	ErrClientNotFound = errors.New("stream client not found")
	ErrChannelFull    = errors.New("stream message channel full")
)

// Notification represents a message created for a user by a state
// transition. Immutable except for the read flag.
type Notification struct {
	ID             int64      `json:"id"`
	NotificationID uuid.UUID  `json:"notificationId"`
	RecipientID    uuid.UUID  `json:"recipientId"`
	Type           Type       `json:"type"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	RelatedType    *string    `json:"relatedType,omitempty"`
	RelatedID      *uuid.UUID `json:"relatedId,omitempty"`
	DedupeKey      *string    `json:"dedupeKey,omitempty"`
	IsRead         bool       `json:"isRead"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// New creates a notification.
func New(recipientID uuid.UUID, typ Type, title, message string) *Notification {
	return &Notification{
		NotificationID: uuid.New(),
		RecipientID:    recipientID,
		Type:           typ,
		Title:          title,
		Message:        message,
		CreatedAt:      time.Now().UTC(),
	}
}

// SetRelated attaches the entity the notification is about.
func (n *Notification) SetRelated(relatedType string, relatedID uuid.UUID) {
	n.RelatedType = &relatedType
	n.RelatedID = &relatedID
}

// SetDedupeKey marks the notification for at-most-once-per-key delivery.
func (n *Notification) SetDedupeKey(key string) {
	n.DedupeKey = &key
}

// MarkRead flips the read flag.
func (n *Notification) MarkRead(now time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = &now
}

// DailyDedupeKey builds the idempotency key for reminder-style
// notifications: at most one per (type, entity, user, calendar day).
func DailyDedupeKey(typ Type, entityID, userID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", typ, entityID, userID, day.UTC().Format("2006-01-02"))
}

// StreamClient represents an active SSE connection.
type StreamClient struct {
	ClientID    string
	UserID      uuid.UUID
	Rooms       []string
	ConnectedAt time.Time
	MessageChan chan *StreamMessage
}

// NewStreamClient creates a stream client.
func NewStreamClient(clientID string, userID uuid.UUID, rooms []string) *StreamClient {
	return &StreamClient{
		ClientID:    clientID,
		UserID:      userID,
		Rooms:       rooms,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *StreamMessage, 100),
	}
}

// Close closes the client's message channel.
func (c *StreamClient) Close() {
	close(c.MessageChan)
}

// StreamMessage represents an event pushed to live clients.
type StreamMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewStreamMessage creates a stream message.
func NewStreamMessage(event string, data json.RawMessage) *StreamMessage {
	return &StreamMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// TransactionRoom names the broadcast room for a transaction.
func TransactionRoom(transactionID uuid.UUID) string {
	return "transaction:" + transactionID.String()
}

// Filter represents filters for querying notifications.
type Filter struct {
	RecipientID *uuid.UUID
	Type        *Type
	Unread      *bool
	Since       *time.Time
}
