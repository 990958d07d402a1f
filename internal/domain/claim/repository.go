package claim

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for claim queue entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, claimID uuid.UUID) (*Entry, error)
	// ListByItem returns entries ordered by submission time ascending.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*Entry, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Entry, error)
	// HasQueued reports whether the requester already has a QUEUED entry
	// on the item.
	HasQueued(ctx context.Context, itemID, requesterID uuid.UUID) (bool, error)
	// UpdateStatusIf flips status from expected to target and reports
	// whether the flip happened.
	UpdateStatusIf(ctx context.Context, claimID uuid.UUID, expected, target Status) (bool, error)
	// Confirm atomically locks the item and flips the entry from QUEUED to
	// CONFIRMED. If the item is already locked it fails with
	// fault.ErrItemUnavailable; if the entry left QUEUED it fails with
	// fault.ErrInvalidState.
	Confirm(ctx context.Context, claimID uuid.UUID) error
}
