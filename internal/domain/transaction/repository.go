package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campus-share/campus-share/internal/domain/item"
)

// AcceptInput carries everything needed to convert an accepted request
// into a transaction in a single atomic unit.
type AcceptInput struct {
	TransactionID uuid.UUID
	ItemID        uuid.UUID
	RequestID     uuid.UUID
	RequesterID   uuid.UUID
	OwnerID       uuid.UUID
	Mode          item.Mode
	AgreedPrice   *int
	AgreedDays    *int
}

// Filter controls transaction listing.
type Filter struct {
	ItemID      *uuid.UUID
	RequesterID *uuid.UUID
	OwnerID     *uuid.UUID
	PartyID     *uuid.UUID
	Status      *Status
	Mode        *item.Mode
}

// Repository defines persistence for transactions and their agreements.
type Repository interface {
	// CreateFromRequest atomically locks the item, flips the request from
	// PENDING to ACCEPTED and inserts the transaction. If the item is
	// already locked it fails with fault.ErrItemUnavailable; if the request
	// left PENDING it fails with fault.ErrInvalidState. No partial state is
	// ever observable.
	CreateFromRequest(ctx context.Context, in AcceptInput) (*Transaction, error)
	GetByID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Transaction, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Transaction, error)

	// UpdateStatusIf flips status from expected to target and reports
	// whether the flip happened.
	UpdateStatusIf(ctx context.Context, transactionID uuid.UUID, expected, target Status) (bool, error)
	// Complete flips status to COMPLETED from the expected state, stamping
	// the actual return date.
	Complete(ctx context.Context, transactionID uuid.UUID, expected Status, returnedAt time.Time) (bool, error)
	// SetDispute flips status to DISPUTED from the expected state and
	// records the dispute fields.
	SetDispute(ctx context.Context, transactionID uuid.UUID, expected Status, reason string, raisedBy uuid.UUID, at time.Time) (bool, error)
	// Activate flips AGREEMENT_PROPOSED to ACTIVE, stamping the rental
	// window. Returns false when another confirmation already activated.
	Activate(ctx context.Context, transactionID uuid.UUID, start, end time.Time) (bool, error)

	// ProposeAgreement atomically flips the transaction from ACCEPTED to
	// AGREEMENT_PROPOSED and inserts the agreement. Returns false without
	// inserting when another proposal already won the flip.
	ProposeAgreement(ctx context.Context, a *Agreement) (bool, error)
	GetAgreementByTransaction(ctx context.Context, transactionID uuid.UUID) (*Agreement, error)
	// ConfirmAgreement sets one party's confirmation flag and reports
	// whether the flag actually changed (false means it was already set).
	ConfirmAgreement(ctx context.Context, agreementID uuid.UUID, role ConfirmerRole) (bool, error)

	// ListDueRentals returns ACTIVE rental transactions with a set end
	// date, for the reminder sweep.
	ListDueRentals(ctx context.Context, limit int) ([]*Transaction, error)
}
