package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/item"
)

// Status represents transaction lifecycle state.
type Status string

const (
	StatusAccepted          Status = "ACCEPTED"
	StatusAgreementProposed Status = "AGREEMENT_PROPOSED"
	StatusActive            Status = "ACTIVE"
	StatusReturnPending     Status = "RETURN_PENDING"
	StatusCompleted         Status = "COMPLETED"
	StatusDisputed          Status = "DISPUTED"
	StatusCancelled         Status = "CANCELLED"
)

// Transaction represents the binding engagement created once a request is
// accepted. Item, request and parties are immutable after creation; only
// status, dates and dispute fields change.
type Transaction struct {
	ID               int64      `json:"id"`
	TransactionID    uuid.UUID  `json:"transactionId"`
	ItemID           uuid.UUID  `json:"itemId"`
	RequestID        uuid.UUID  `json:"requestId"`
	RequesterID      uuid.UUID  `json:"requesterId"`
	OwnerID          uuid.UUID  `json:"ownerId"`
	Mode             item.Mode  `json:"mode"`
	Status           Status     `json:"status"`
	AgreedPrice      *int       `json:"agreedPrice,omitempty"`
	AgreedDays       *int       `json:"agreedDays,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	ActualReturnDate *time.Time `json:"actualReturnDate,omitempty"`
	DisputeReason    *string    `json:"disputeReason,omitempty"`
	DisputeRaisedBy  *uuid.UUID `json:"disputeRaisedBy,omitempty"`
	DisputeAt        *time.Time `json:"disputeAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CanTransitionTo validates a lifecycle transition.
func (t *Transaction) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusAccepted:          {StatusAgreementProposed, StatusCancelled},
		StatusAgreementProposed: {StatusActive},
		StatusActive:            {StatusReturnPending, StatusCompleted, StatusDisputed},
		StatusReturnPending:     {StatusCompleted, StatusDisputed},
		StatusCompleted:         {},
		StatusDisputed:          {},
		StatusCancelled:         {},
	}
	for _, s := range transitions[t.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the transaction reached a final state.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusDisputed, StatusCancelled:
		return true
	}
	return false
}

// IsParty reports whether the user is the requester or the owner.
func (t *Transaction) IsParty(userID uuid.UUID) bool {
	return t.RequesterID == userID || t.OwnerID == userID
}

// Counterparty returns the other side of the transaction.
func (t *Transaction) Counterparty(userID uuid.UUID) (uuid.UUID, error) {
	switch userID {
	case t.RequesterID:
		return t.OwnerID, nil
	case t.OwnerID:
		return t.RequesterID, nil
	default:
		return uuid.Nil, fault.ErrForbidden
	}
}

// Agreement holds the negotiated terms of a transaction. The proposer's
// flag is set at proposal time; the counterparty's confirmation brings
// the transaction to ACTIVE.
type Agreement struct {
	ID                int64     `json:"id"`
	AgreementID       uuid.UUID `json:"agreementId"`
	TransactionID     uuid.UUID `json:"transactionId"`
	FinalPrice        int       `json:"finalPrice"`
	ReturnDate        time.Time `json:"returnDate"`
	OwnerConfirmed    bool      `json:"ownerConfirmed"`
	BorrowerConfirmed bool      `json:"borrowerConfirmed"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// BothConfirmed reports whether both parties have confirmed.
func (a *Agreement) BothConfirmed() bool {
	return a.OwnerConfirmed && a.BorrowerConfirmed
}

// ConfirmerRole identifies which agreement flag a confirmation sets.
type ConfirmerRole string

const (
	ConfirmerOwner    ConfirmerRole = "OWNER"
	ConfirmerBorrower ConfirmerRole = "BORROWER"
)
