package request

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls request listing.
type Filter struct {
	ItemID      *uuid.UUID
	RequesterID *uuid.UUID
	OwnerID     *uuid.UUID
	Status      *Status
}

// Repository defines persistence for requests.
type Repository interface {
	// Create persists a new PENDING request. A second pending request for
	// the same (item, requester) pair fails with fault.ErrDuplicatePending.
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, requestID uuid.UUID) (*Request, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Request, error)
	// UpdateStatusIf flips status from expected to target and reports
	// whether the flip happened.
	UpdateStatusIf(ctx context.Context, requestID uuid.UUID, expected, target Status) (bool, error)
	// UpdateTerms overwrites the proposed price and duration.
	UpdateTerms(ctx context.Context, requestID uuid.UUID, price, days *int) error
}

// OfferRepository defines persistence for counter-offers.
type OfferRepository interface {
	Create(ctx context.Context, offer *Offer) error
	GetByID(ctx context.Context, offerID uuid.UUID) (*Offer, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Offer, error)
	UpdateStatusIf(ctx context.Context, offerID uuid.UUID, expected, target OfferStatus) (bool, error)
	// SupersedeOpen closes every remaining OPEN offer on the request.
	SupersedeOpen(ctx context.Context, requestID uuid.UUID, except uuid.UUID) error
}
