package claim

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
	"github.com/campus-share/campus-share/internal/domain/claim"
	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/item"
	"github.com/campus-share/campus-share/internal/domain/notification"
	domainTrust "github.com/campus-share/campus-share/internal/domain/trust"
)

const relatedTypeClaim = "CLAIM"

// Service runs the instant-claim queue for give-away items. Claimants
// queue freely; confirming one entry locks the item and strands the
// rest. The owner picks which entry to confirm — ordering by submission
// time only biases the choice.
type Service struct {
	claimRepo claim.Repository
	itemRepo  item.Repository
	trustSvc  *appTrust.Service
	notifier  *appNotification.Service
	auditSvc  *appAudit.Service
	logger    zerolog.Logger
}

// NewService creates a claim service.
func NewService(
	claimRepo claim.Repository,
	itemRepo item.Repository,
	trustSvc *appTrust.Service,
	notifier *appNotification.Service,
	auditSvc *appAudit.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		claimRepo: claimRepo,
		itemRepo:  itemRepo,
		trustSvc:  trustSvc,
		notifier:  notifier,
		auditSvc:  auditSvc,
		logger:    logger.With().Str("service", "claim").Logger(),
	}
}

// Claim appends a queue entry for the item. Availability is untouched:
// any number of claimants may queue on one item.
func (s *Service) Claim(ctx context.Context, itemID, requesterID uuid.UUID, note string) (*claim.Entry, error) {
	i, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, fault.ErrNotFound
	}
	if i.OwnerID == requesterID {
		return nil, fault.ErrSelfRequest
	}
	if !i.Claimable() {
		if !i.IsAvailable {
			return nil, fault.ErrItemUnavailable
		}
		return nil, fault.ErrInvalidState
	}
	queued, err := s.claimRepo.HasQueued(ctx, itemID, requesterID)
	if err != nil {
		return nil, err
	}
	if queued {
		return nil, fault.ErrDuplicatePending
	}

	now := time.Now().UTC()
	entry := &claim.Entry{
		ClaimID:     uuid.New(),
		ItemID:      itemID,
		RequesterID: requesterID,
		OwnerID:     i.OwnerID,
		Status:      claim.StatusQueued,
		Note:        note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.claimRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeClaim,
		EntityID:   entry.ClaimID.String(),
		Action:     audit.ActionClaim,
		Actor:      requesterID.String(),
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: i.OwnerID,
		Type:        notification.TypeClaimReceived,
		Title:       "New claim",
		Message:     fmt.Sprintf("Someone claimed %q", i.Title),
		RelatedType: relatedTypeClaim,
		RelatedID:   entry.ClaimID,
	})
	return entry, nil
}

// ConfirmPickup confirms one queued entry. Owner only. The item lock and
// the entry flip are atomic; a second concurrent confirmation on the
// same item loses with fault.ErrItemUnavailable. Remaining queued
// entries stay visible but can no longer be confirmed.
func (s *Service) ConfirmPickup(ctx context.Context, claimID, actorID uuid.UUID) (*claim.Entry, error) {
	entry, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fault.ErrNotFound
	}
	if entry.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	if !entry.CanTransitionTo(claim.StatusConfirmed) {
		return nil, fault.ErrInvalidState
	}

	if err := s.claimRepo.Confirm(ctx, claimID); err != nil {
		return nil, err
	}
	entry.Status = claim.StatusConfirmed

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeClaim,
		EntityID:   entry.ClaimID.String(),
		Action:     audit.ActionConfirm,
		Actor:      actorID.String(),
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: entry.RequesterID,
		Type:        notification.TypeClaimConfirmed,
		Title:       "Claim confirmed",
		Message:     "Your claim was confirmed; arrange the pickup",
		RelatedType: relatedTypeClaim,
		RelatedID:   entry.ClaimID,
	})
	return entry, nil
}

// Complete closes out a confirmed claim after the handover. Owner only.
// Both parties earn the completion trust bonus.
func (s *Service) Complete(ctx context.Context, claimID, actorID uuid.UUID) (*claim.Entry, error) {
	entry, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fault.ErrNotFound
	}
	if entry.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	if !entry.CanTransitionTo(claim.StatusCompleted) {
		return nil, fault.ErrInvalidState
	}

	flipped, err := s.claimRepo.UpdateStatusIf(ctx, claimID, claim.StatusConfirmed, claim.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	entry.Status = claim.StatusCompleted

	s.trustSvc.Apply(ctx, entry.RequesterID, domainTrust.ActionCompleted)
	s.trustSvc.Apply(ctx, entry.OwnerID, domainTrust.ActionCompleted)

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeClaim,
		EntityID:   entry.ClaimID.String(),
		Action:     audit.ActionComplete,
		Actor:      actorID.String(),
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: entry.RequesterID,
		Type:        notification.TypeClaimCompleted,
		Title:       "Claim completed",
		Message:     "The give-away was handed over",
		RelatedType: relatedTypeClaim,
		RelatedID:   entry.ClaimID,
	})
	return entry, nil
}

// Cancel withdraws a queued entry. Claimant only.
func (s *Service) Cancel(ctx context.Context, claimID, actorID uuid.UUID) (*claim.Entry, error) {
	entry, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fault.ErrNotFound
	}
	if entry.RequesterID != actorID {
		return nil, fault.ErrForbidden
	}
	if !entry.CanTransitionTo(claim.StatusCancelled) {
		return nil, fault.ErrInvalidState
	}
	flipped, err := s.claimRepo.UpdateStatusIf(ctx, claimID, claim.StatusQueued, claim.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	entry.Status = claim.StatusCancelled
	return entry, nil
}

// ListByItem returns the item's queue in submission order. Owner only.
func (s *Service) ListByItem(ctx context.Context, itemID, actorID uuid.UUID) ([]*claim.Entry, error) {
	i, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, fault.ErrNotFound
	}
	if i.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	return s.claimRepo.ListByItem(ctx, itemID)
}

// ListMine returns the requester's own claims.
func (s *Service) ListMine(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*claim.Entry, error) {
	return s.claimRepo.ListByRequester(ctx, requesterID, limit, offset)
}
