package request

import (
	"time"

	"github.com/google/uuid"

	"github.com/campus-share/campus-share/internal/domain/fault"
)

// Status represents request status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Request represents a prospective claim on an item by a non-owner,
// pending the owner's decision.
type Request struct {
	ID            int64     `json:"id"`
	RequestID     uuid.UUID `json:"requestId"`
	ItemID        uuid.UUID `json:"itemId"`
	RequesterID   uuid.UUID `json:"requesterId"`
	OwnerID       uuid.UUID `json:"ownerId"`
	Status        Status    `json:"status"`
	ProposedPrice *int      `json:"proposedPrice,omitempty"`
	ProposedDays  *int      `json:"proposedDays,omitempty"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CanTransitionTo validates a request status transition. PENDING is the
// only non-terminal state.
func (r *Request) CanTransitionTo(target Status) bool {
	if r.Status != StatusPending {
		return false
	}
	switch target {
	case StatusAccepted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsParty reports whether the user is the requester or the owner.
func (r *Request) IsParty(userID uuid.UUID) bool {
	return r.RequesterID == userID || r.OwnerID == userID
}

// Counterparty returns the other side of the request for a given party.
func (r *Request) Counterparty(userID uuid.UUID) (uuid.UUID, error) {
	switch userID {
	case r.RequesterID:
		return r.OwnerID, nil
	case r.OwnerID:
		return r.RequesterID, nil
	default:
		return uuid.Nil, fault.ErrForbidden
	}
}

// OfferStatus represents counter-offer status.
type OfferStatus string

const (
	OfferStatusOpen       OfferStatus = "OPEN"
	OfferStatusAccepted   OfferStatus = "ACCEPTED"
	OfferStatusRejected   OfferStatus = "REJECTED"
	OfferStatusSuperseded OfferStatus = "SUPERSEDED"
)

// Offer represents one round of price/term negotiation on a pending
// request. Rounds are unbounded while the request stays PENDING.
type Offer struct {
	ID         int64       `json:"id"`
	OfferID    uuid.UUID   `json:"offerId"`
	RequestID  uuid.UUID   `json:"requestId"`
	ProposedBy uuid.UUID   `json:"proposedBy"`
	PriceCents *int        `json:"priceCents,omitempty"`
	RentalDays *int        `json:"rentalDays,omitempty"`
	Note       string      `json:"note,omitempty"`
	Status     OfferStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Validate checks that the offer changes at least one term.
func (o *Offer) Validate() error {
	if o.PriceCents == nil && o.RentalDays == nil {
		return fault.ErrValidation
	}
	if o.PriceCents != nil && *o.PriceCents < 0 {
		return fault.ErrValidation
	}
	if o.RentalDays != nil && *o.RentalDays <= 0 {
		return fault.ErrValidation
	}
	return nil
}
