package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/campus-share/campus-share/internal/application/audit"
	appNotification "github.com/campus-share/campus-share/internal/application/notification"
	appTrust "github.com/campus-share/campus-share/internal/application/trust"
	"github.com/campus-share/campus-share/internal/domain/audit"
	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/item"
	"github.com/campus-share/campus-share/internal/domain/notification"
	"github.com/campus-share/campus-share/internal/domain/transaction"
	domainTrust "github.com/campus-share/campus-share/internal/domain/trust"
)

const relatedTypeTransaction = "TRANSACTION"

// Late returns within this many whole days past the agreed return date
// count as minor; anything later counts as major.
const minorLateDays = 2

// Service governs the transaction lifecycle from acceptance through
// agreement, activation, return and dispute. Every transition is
// persisted conditionally so concurrent duplicates lose cleanly, and
// trust/notification side effects never fail the transition itself.
type Service struct {
	txRepo   transaction.Repository
	itemRepo item.Repository
	trustSvc *appTrust.Service
	notifier *appNotification.Service
	auditSvc *appAudit.Service
	logger   zerolog.Logger
}

// NewService creates a transaction service.
func NewService(
	txRepo transaction.Repository,
	itemRepo item.Repository,
	trustSvc *appTrust.Service,
	notifier *appNotification.Service,
	auditSvc *appAudit.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		txRepo:   txRepo,
		itemRepo: itemRepo,
		trustSvc: trustSvc,
		notifier: notifier,
		auditSvc: auditSvc,
		logger:   logger.With().Str("service", "transaction").Logger(),
	}
}

// Get retrieves a transaction visible to one of its parties.
func (s *Service) Get(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// List returns transactions matching the filter.
func (s *Service) List(ctx context.Context, filter transaction.Filter, limit, offset int) ([]*transaction.Transaction, error) {
	return s.txRepo.List(ctx, filter, limit, offset)
}

// GetAgreement returns the agreement of a transaction, if proposed.
func (s *Service) GetAgreement(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Agreement, error) {
	if _, err := s.partyTransaction(ctx, transactionID, actorID); err != nil {
		return nil, err
	}
	return s.txRepo.GetAgreementByTransaction(ctx, transactionID)
}

// ProposeAgreement fixes the final terms. Owner only, from ACCEPTED.
// Proposing counts as the owner's confirmation; the transaction
// activates once the requester confirms.
func (s *Service) ProposeAgreement(ctx context.Context, transactionID, actorID uuid.UUID, finalPrice int, returnDate time.Time) (*transaction.Agreement, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	if tx.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	if !tx.CanTransitionTo(transaction.StatusAgreementProposed) {
		return nil, fault.ErrInvalidState
	}
	if finalPrice < 0 {
		return nil, fault.ErrValidation
	}
	if tx.Mode == item.ModeRent && !returnDate.After(time.Now().UTC()) {
		return nil, fault.ErrValidation
	}

	now := time.Now().UTC()
	ag := &transaction.Agreement{
		AgreementID:    uuid.New(),
		TransactionID:  tx.TransactionID,
		FinalPrice:     finalPrice,
		ReturnDate:     returnDate,
		OwnerConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	proposed, err := s.txRepo.ProposeAgreement(ctx, ag)
	if err != nil {
		return nil, fmt.Errorf("failed to create agreement: %w", err)
	}
	if !proposed {
		return nil, fault.ErrInvalidState
	}

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeTransaction,
		EntityID:   tx.TransactionID.String(),
		Action:     audit.ActionPropose,
		Actor:      actorID.String(),
		Reason:     "agreement proposed",
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: tx.RequesterID,
		Type:        notification.TypeAgreementProposed,
		Title:       "Agreement proposed",
		Message:     "The owner proposed final terms; confirm to activate",
		RelatedType: relatedTypeTransaction,
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return ag, nil
}

// ConfirmAgreement records a party's confirmation. Confirming twice is a
// no-op: the flag update is conditional and activation is a
// compare-and-swap, so the transaction reaches ACTIVE exactly once and
// side effects never repeat.
func (s *Service) ConfirmAgreement(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	if tx.Status == transaction.StatusActive {
		return tx, nil
	}
	if !tx.CanTransitionTo(transaction.StatusActive) {
		return nil, fault.ErrInvalidState
	}
	ag, err := s.txRepo.GetAgreementByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if ag == nil {
		return nil, fault.ErrInvalidState
	}

	role := transaction.ConfirmerBorrower
	if actorID == tx.OwnerID {
		role = transaction.ConfirmerOwner
	}
	if _, err := s.txRepo.ConfirmAgreement(ctx, ag.AgreementID, role); err != nil {
		return nil, err
	}

	ag, err = s.txRepo.GetAgreementByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if ag == nil || !ag.BothConfirmed() {
		return tx, nil
	}

	now := time.Now().UTC()
	end := ag.ReturnDate
	activated, err := s.txRepo.Activate(ctx, transactionID, now, end)
	if err != nil {
		return nil, err
	}
	tx.Status = transaction.StatusActive
	tx.StartDate = &now
	if !end.IsZero() {
		tx.EndDate = &end
	}
	if !activated {
		// A concurrent confirmation won the swap; its side effects stand.
		return tx, nil
	}

	counterparty, _ := tx.Counterparty(actorID)
	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeTransaction,
		EntityID:   tx.TransactionID.String(),
		Action:     audit.ActionConfirm,
		Actor:      actorID.String(),
		Reason:     "agreement confirmed, transaction active",
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: counterparty,
		Type:        notification.TypeAgreementConfirmed,
		Title:       "Agreement confirmed",
		Message:     "Both parties confirmed; the transaction is active",
		RelatedType: relatedTypeTransaction,
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return tx, nil
}

// MarkReturnPending signals the borrower wants to hand the item back.
// Requester only, ACTIVE rentals only.
func (s *Service) MarkReturnPending(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	if tx.RequesterID != actorID {
		return nil, fault.ErrForbidden
	}
	if !tx.CanTransitionTo(transaction.StatusReturnPending) || tx.Mode != item.ModeRent {
		return nil, fault.ErrInvalidState
	}
	flipped, err := s.txRepo.UpdateStatusIf(ctx, transactionID, transaction.StatusActive, transaction.StatusReturnPending)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	tx.Status = transaction.StatusReturnPending

	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: tx.OwnerID,
		Type:        notification.TypeReturnRequested,
		Title:       "Return requested",
		Message:     "The borrower wants to return the item",
		RelatedType: relatedTypeTransaction,
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return tx, nil
}

// ConfirmReturn closes a rental. Owner only, from RETURN_PENDING. The
// borrower's trust adjusts for punctuality against the agreement's
// return date, both parties earn the completion bonus, and the item
// becomes available again.
func (s *Service) ConfirmReturn(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	if tx.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	if tx.Status != transaction.StatusReturnPending {
		return nil, fault.ErrInvalidState
	}

	now := time.Now().UTC()
	flipped, err := s.txRepo.Complete(ctx, transactionID, transaction.StatusReturnPending, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	tx.Status = transaction.StatusCompleted
	tx.ActualReturnDate = &now

	if err := s.itemRepo.Release(ctx, tx.ItemID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", tx.ItemID.String()).Msg("failed to release item")
	}

	ag, err := s.txRepo.GetAgreementByTransaction(ctx, transactionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", transactionID.String()).Msg("failed to load agreement for return scoring")
	}
	if ag != nil {
		s.trustSvc.Apply(ctx, tx.RequesterID, returnAction(ag.ReturnDate, now))
	}
	s.trustSvc.Apply(ctx, tx.RequesterID, domainTrust.ActionCompleted)
	s.trustSvc.Apply(ctx, tx.OwnerID, domainTrust.ActionCompleted)

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeTransaction,
		EntityID:   tx.TransactionID.String(),
		Action:     audit.ActionReturn,
		Actor:      actorID.String(),
		Reason:     "return confirmed",
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: tx.RequesterID,
		Type:        notification.TypeReturnConfirmed,
		Title:       "Return confirmed",
		Message:     "The owner confirmed the return; the rental is complete",
		RelatedType: relatedTypeTransaction,
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return tx, nil
}

// CompleteHandover closes a sale or give-away. Owner only, from ACTIVE,
// non-rental modes only; the item stays with the new holder.
func (s *Service) CompleteHandover(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	if tx.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	if tx.Status != transaction.StatusActive || tx.Mode == item.ModeRent {
		return nil, fault.ErrInvalidState
	}

	now := time.Now().UTC()
	flipped, err := s.txRepo.Complete(ctx, transactionID, transaction.StatusActive, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	tx.Status = transaction.StatusCompleted

	s.trustSvc.Apply(ctx, tx.RequesterID, domainTrust.ActionCompleted)
	s.trustSvc.Apply(ctx, tx.OwnerID, domainTrust.ActionCompleted)

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeTransaction,
		EntityID:   tx.TransactionID.String(),
		Action:     audit.ActionComplete,
		Actor:      actorID.String(),
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: tx.RequesterID,
		Type:        notification.TypeTransactionCompleted,
		Title:       "Transaction completed",
		Message:     "The handover is complete",
		RelatedType: relatedTypeTransaction,
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return tx, nil
}

// RaiseDispute moves an active or return-pending transaction to the
// terminal DISPUTED state. Either party; the other party takes the
// dispute trust penalty. Resolution is an administrative concern
// outside this service.
func (s *Service) RaiseDispute(ctx context.Context, transactionID, actorID uuid.UUID, reason string) (*transaction.Transaction, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, fault.ErrValidation
	}
	if !tx.CanTransitionTo(transaction.StatusDisputed) {
		return nil, fault.ErrInvalidState
	}

	now := time.Now().UTC()
	flipped, err := s.txRepo.SetDispute(ctx, transactionID, tx.Status, reason, actorID, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	tx.Status = transaction.StatusDisputed
	tx.DisputeReason = &reason
	tx.DisputeRaisedBy = &actorID
	tx.DisputeAt = &now

	counterparty, _ := tx.Counterparty(actorID)
	s.trustSvc.Apply(ctx, counterparty, domainTrust.ActionDispute)

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeTransaction,
		EntityID:   tx.TransactionID.String(),
		Action:     audit.ActionDispute,
		Actor:      actorID.String(),
		Reason:     reason,
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: counterparty,
		Type:        notification.TypeDisputeRaised,
		Title:       "Dispute raised",
		Message:     fmt.Sprintf("A dispute was raised: %s", reason),
		RelatedType: relatedTypeTransaction,
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return tx, nil
}

// Cancel abandons a freshly accepted transaction before terms are
// proposed. Either party; the item is released for new requests.
func (s *Service) Cancel(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.partyTransaction(ctx, transactionID, actorID)
	if err != nil {
		return nil, err
	}
	if !tx.CanTransitionTo(transaction.StatusCancelled) {
		return nil, fault.ErrInvalidState
	}
	flipped, err := s.txRepo.UpdateStatusIf(ctx, transactionID, transaction.StatusAccepted, transaction.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	tx.Status = transaction.StatusCancelled

	if err := s.itemRepo.Release(ctx, tx.ItemID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", tx.ItemID.String()).Msg("failed to release item")
	}

	counterparty, _ := tx.Counterparty(actorID)
	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeTransaction,
		EntityID:   tx.TransactionID.String(),
		Action:     audit.ActionCancel,
		Actor:      actorID.String(),
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: counterparty,
		Type:        notification.TypeTransactionCancelled,
		Title:       "Transaction cancelled",
		Message:     "The transaction was cancelled before activation",
		RelatedType: relatedTypeTransaction,
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return tx, nil
}

func (s *Service) partyTransaction(ctx context.Context, transactionID, actorID uuid.UUID) (*transaction.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fault.ErrNotFound
	}
	if !tx.IsParty(actorID) {
		return nil, fault.ErrForbidden
	}
	return tx, nil
}

// returnAction picks the trust adjustment for a return based on whole
// calendar days past the agreed return date.
func returnAction(due, actual time.Time) domainTrust.Action {
	late := daysLate(due, actual)
	switch {
	case late <= 0:
		return domainTrust.ActionOnTimeReturn
	case late <= minorLateDays:
		return domainTrust.ActionLateReturnMinor
	default:
		return domainTrust.ActionLateReturnMajor
	}
}

func daysLate(due, actual time.Time) int {
	dueDay := due.UTC().Truncate(24 * time.Hour)
	actualDay := actual.UTC().Truncate(24 * time.Hour)
	return int(actualDay.Sub(dueDay) / (24 * time.Hour))
}
