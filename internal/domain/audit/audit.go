package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityType represents the type of entity being audited.
type EntityType string

const (
	EntityTypeItem        EntityType = "ITEM"
	EntityTypeRequest     EntityType = "REQUEST"
	EntityTypeOffer       EntityType = "OFFER"
	EntityTypeTransaction EntityType = "TRANSACTION"
	EntityTypeClaim       EntityType = "CLAIM"
	EntityTypeUser        EntityType = "USER"
)

// Action represents the audited action.
type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionUpdate   Action = "UPDATE"
	ActionAccept   Action = "ACCEPT"
	ActionReject   Action = "REJECT"
	ActionCancel   Action = "CANCEL"
	ActionPropose  Action = "PROPOSE"
	ActionConfirm  Action = "CONFIRM"
	ActionReturn   Action = "RETURN"
	ActionComplete Action = "COMPLETE"
	ActionDispute  Action = "DISPUTE"
	ActionClaim    Action = "CLAIM"
)

// Entry represents one audited lifecycle transition.
type Entry struct {
	ID         int64      `json:"id"`
	AuditID    uuid.UUID  `json:"auditId"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Action     Action     `json:"action"`
	Actor      string     `json:"actor"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// QueryFilter represents filters for querying audit entries.
type QueryFilter struct {
	EntityType *EntityType
	EntityID   *string
	Action     *Action
	Actor      *string
	StartTime  *time.Time
	EndTime    *time.Time
}

// Repository defines persistence for audit entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter QueryFilter, limit, offset int) ([]*Entry, error)
}
