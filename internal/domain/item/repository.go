package item

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls item listing.
type Filter struct {
	OwnerID     *uuid.UUID
	Mode        *Mode
	IsAvailable *bool
}

// Repository defines persistence for items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, itemID uuid.UUID) (*Item, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Item, error)
	Update(ctx context.Context, item *Item) error

	// Lock flips is_available from true to false and reports whether the
	// flip happened. A false result means another writer holds the item.
	Lock(ctx context.Context, itemID uuid.UUID) (bool, error)
	// Release flips is_available back to true.
	Release(ctx context.Context, itemID uuid.UUID) error
	// HasOpenEngagement reports whether a non-terminal transaction or a
	// confirmed claim still references the item.
	HasOpenEngagement(ctx context.Context, itemID uuid.UUID) (bool, error)
}
