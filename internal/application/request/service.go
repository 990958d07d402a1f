package request

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/campus-share/campus-share/internal/application/audit"
	appNotification "github.com/campus-share/campus-share/internal/application/notification"
	"github.com/campus-share/campus-share/internal/domain/audit"
	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/item"
	"github.com/campus-share/campus-share/internal/domain/notification"
	"github.com/campus-share/campus-share/internal/domain/request"
	"github.com/campus-share/campus-share/internal/domain/transaction"
)

const relatedTypeRequest = "REQUEST"

// Service runs the request lifecycle: creation, owner decisions and the
// counter-offer exchange. Accepting a request locks the item and spawns
// the transaction as one atomic unit.
type Service struct {
	requestRepo request.Repository
	offerRepo   request.OfferRepository
	itemRepo    item.Repository
	txRepo      transaction.Repository
	notifier    *appNotification.Service
	auditSvc    *appAudit.Service
	logger      zerolog.Logger
}

// NewService creates a request service.
func NewService(
	requestRepo request.Repository,
	offerRepo request.OfferRepository,
	itemRepo item.Repository,
	txRepo transaction.Repository,
	notifier *appNotification.Service,
	auditSvc *appAudit.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		requestRepo: requestRepo,
		offerRepo:   offerRepo,
		itemRepo:    itemRepo,
		txRepo:      txRepo,
		notifier:    notifier,
		auditSvc:    auditSvc,
		logger:      logger.With().Str("service", "request").Logger(),
	}
}

// CreateInput carries a new request.
type CreateInput struct {
	ItemID        uuid.UUID
	RequesterID   uuid.UUID
	ProposedPrice *int
	ProposedDays  *int
	Message       string
}

// Create persists a PENDING request against an available item.
func (s *Service) Create(ctx context.Context, in CreateInput) (*request.Request, error) {
	i, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, fault.ErrNotFound
	}
	if i.OwnerID == in.RequesterID {
		return nil, fault.ErrSelfRequest
	}
	if !i.IsAvailable {
		return nil, fault.ErrItemUnavailable
	}
	if in.ProposedPrice != nil && *in.ProposedPrice < 0 {
		return nil, fault.ErrValidation
	}
	if in.ProposedDays != nil && *in.ProposedDays <= 0 {
		return nil, fault.ErrValidation
	}

	now := time.Now().UTC()
	req := &request.Request{
		RequestID:     uuid.New(),
		ItemID:        i.ItemID,
		RequesterID:   in.RequesterID,
		OwnerID:       i.OwnerID,
		Status:        request.StatusPending,
		ProposedPrice: in.ProposedPrice,
		ProposedDays:  in.ProposedDays,
		Message:       in.Message,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeRequest,
		EntityID:   req.RequestID.String(),
		Action:     audit.ActionCreate,
		Actor:      in.RequesterID.String(),
		Reason:     "request created",
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: i.OwnerID,
		Type:        notification.TypeRequestReceived,
		Title:       "New request",
		Message:     fmt.Sprintf("You received a request for %q", i.Title),
		RelatedType: relatedTypeRequest,
		RelatedID:   req.RequestID,
	})
	return req, nil
}

// Get retrieves a request visible to one of its parties.
func (s *Service) Get(ctx context.Context, requestID, actorID uuid.UUID) (*request.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fault.ErrNotFound
	}
	if !req.IsParty(actorID) {
		return nil, fault.ErrForbidden
	}
	return req, nil
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	return s.requestRepo.List(ctx, filter, limit, offset)
}

// Accept converts a pending request into a transaction. The item lock,
// the request flip and the transaction insert are one atomic unit; the
// loser of a concurrent accept race on the same item observes
// fault.ErrItemUnavailable.
func (s *Service) Accept(ctx context.Context, requestID, actorID uuid.UUID) (*transaction.Transaction, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fault.ErrNotFound
	}
	if req.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	if !req.CanTransitionTo(request.StatusAccepted) {
		return nil, fault.ErrInvalidState
	}
	return s.accept(ctx, req, actorID)
}

func (s *Service) accept(ctx context.Context, req *request.Request, actorID uuid.UUID) (*transaction.Transaction, error) {
	i, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, fault.ErrNotFound
	}

	agreedPrice := req.ProposedPrice
	if agreedPrice == nil {
		agreedPrice = i.PriceCents
	}
	agreedDays := req.ProposedDays
	if agreedDays == nil {
		agreedDays = i.RentalDays
	}

	tx, err := s.txRepo.CreateFromRequest(ctx, transaction.AcceptInput{
		TransactionID: uuid.New(),
		ItemID:        req.ItemID,
		RequestID:     req.RequestID,
		RequesterID:   req.RequesterID,
		OwnerID:       req.OwnerID,
		Mode:          i.Mode,
		AgreedPrice:   agreedPrice,
		AgreedDays:    agreedDays,
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeRequest,
		EntityID:   req.RequestID.String(),
		Action:     audit.ActionAccept,
		Actor:      actorID.String(),
		Reason:     "request accepted",
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: req.RequesterID,
		Type:        notification.TypeRequestAccepted,
		Title:       "Request accepted",
		Message:     fmt.Sprintf("Your request for %q was accepted", i.Title),
		RelatedType: "TRANSACTION",
		RelatedID:   tx.TransactionID,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	return tx, nil
}

// Reject declines a pending request. Owner only; no item side effects.
func (s *Service) Reject(ctx context.Context, requestID, actorID uuid.UUID) (*request.Request, error) {
	return s.close(ctx, requestID, actorID, request.StatusRejected)
}

// Cancel withdraws a pending request. Requester only; no item side
// effects.
func (s *Service) Cancel(ctx context.Context, requestID, actorID uuid.UUID) (*request.Request, error) {
	return s.close(ctx, requestID, actorID, request.StatusCancelled)
}

func (s *Service) close(ctx context.Context, requestID, actorID uuid.UUID, target request.Status) (*request.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fault.ErrNotFound
	}
	switch target {
	case request.StatusRejected:
		if req.OwnerID != actorID {
			return nil, fault.ErrForbidden
		}
	case request.StatusCancelled:
		if req.RequesterID != actorID {
			return nil, fault.ErrForbidden
		}
	}
	if !req.CanTransitionTo(target) {
		return nil, fault.ErrInvalidState
	}

	flipped, err := s.requestRepo.UpdateStatusIf(ctx, requestID, request.StatusPending, target)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	req.Status = target

	action := audit.ActionReject
	notifType := notification.TypeRequestRejected
	recipient := req.RequesterID
	title := "Request rejected"
	if target == request.StatusCancelled {
		action = audit.ActionCancel
		notifType = notification.TypeRequestCancelled
		recipient = req.OwnerID
		title = "Request cancelled"
	}
	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeRequest,
		EntityID:   req.RequestID.String(),
		Action:     action,
		Actor:      actorID.String(),
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: recipient,
		Type:        notifType,
		Title:       title,
		Message:     fmt.Sprintf("Request %s was %s", req.RequestID, target),
		RelatedType: relatedTypeRequest,
		RelatedID:   req.RequestID,
	})
	return req, nil
}

// OfferInput carries one negotiation round.
type OfferInput struct {
	RequestID  uuid.UUID
	ActorID    uuid.UUID
	PriceCents *int
	RentalDays *int
	Note       string
}

// ProposeOffer records a counter-offer on a still-pending request.
// Either party may propose; rounds are unbounded while the request
// stays PENDING.
func (s *Service) ProposeOffer(ctx context.Context, in OfferInput) (*request.Offer, error) {
	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fault.ErrNotFound
	}
	if !req.IsParty(in.ActorID) {
		return nil, fault.ErrForbidden
	}
	if req.Status != request.StatusPending {
		return nil, fault.ErrInvalidState
	}

	now := time.Now().UTC()
	offer := &request.Offer{
		OfferID:    uuid.New(),
		RequestID:  req.RequestID,
		ProposedBy: in.ActorID,
		PriceCents: in.PriceCents,
		RentalDays: in.RentalDays,
		Note:       in.Note,
		Status:     request.OfferStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := offer.Validate(); err != nil {
		return nil, err
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	counterparty, _ := req.Counterparty(in.ActorID)
	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeOffer,
		EntityID:   offer.OfferID.String(),
		Action:     audit.ActionPropose,
		Actor:      in.ActorID.String(),
	})
	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: counterparty,
		Type:        notification.TypeOfferReceived,
		Title:       "Counter-offer received",
		Message:     "A new counter-offer was proposed on your request",
		RelatedType: relatedTypeRequest,
		RelatedID:   req.RequestID,
	})
	return offer, nil
}

// AcceptOffer accepts a counter-offer. Only the counterparty of the
// proposer may accept. Terms fold into the request; when the acceptor
// is the owner the normal atomic acceptance runs immediately, otherwise
// the request stays PENDING awaiting the owner's decision.
func (s *Service) AcceptOffer(ctx context.Context, offerID, actorID uuid.UUID) (*request.Request, *transaction.Transaction, error) {
	offer, req, err := s.offerForDecision(ctx, offerID, actorID)
	if err != nil {
		return nil, nil, err
	}

	flipped, err := s.offerRepo.UpdateStatusIf(ctx, offerID, request.OfferStatusOpen, request.OfferStatusAccepted)
	if err != nil {
		return nil, nil, err
	}
	if !flipped {
		return nil, nil, fault.ErrInvalidState
	}
	if err := s.offerRepo.SupersedeOpen(ctx, req.RequestID, offerID); err != nil {
		s.logger.Warn().Err(err).Str("request_id", req.RequestID.String()).Msg("failed to supersede open offers")
	}

	price := offer.PriceCents
	if price == nil {
		price = req.ProposedPrice
	}
	days := offer.RentalDays
	if days == nil {
		days = req.ProposedDays
	}
	if err := s.requestRepo.UpdateTerms(ctx, req.RequestID, price, days); err != nil {
		return nil, nil, fmt.Errorf("failed to update request terms: %w", err)
	}
	req.ProposedPrice = price
	req.ProposedDays = days

	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: offer.ProposedBy,
		Type:        notification.TypeOfferAccepted,
		Title:       "Counter-offer accepted",
		Message:     "Your counter-offer was accepted",
		RelatedType: relatedTypeRequest,
		RelatedID:   req.RequestID,
	})

	if actorID == req.OwnerID {
		tx, err := s.accept(ctx, req, actorID)
		if err != nil {
			return nil, nil, err
		}
		return req, tx, nil
	}
	return req, nil, nil
}

// RejectOffer declines a counter-offer; the request stays PENDING and
// open to further rounds.
func (s *Service) RejectOffer(ctx context.Context, offerID, actorID uuid.UUID) (*request.Offer, error) {
	offer, req, err := s.offerForDecision(ctx, offerID, actorID)
	if err != nil {
		return nil, err
	}
	flipped, err := s.offerRepo.UpdateStatusIf(ctx, offerID, request.OfferStatusOpen, request.OfferStatusRejected)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, fault.ErrInvalidState
	}
	offer.Status = request.OfferStatusRejected

	s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: offer.ProposedBy,
		Type:        notification.TypeOfferRejected,
		Title:       "Counter-offer rejected",
		Message:     "Your counter-offer was rejected",
		RelatedType: relatedTypeRequest,
		RelatedID:   req.RequestID,
	})
	return offer, nil
}

// ListOffers returns the negotiation history of a request.
func (s *Service) ListOffers(ctx context.Context, requestID, actorID uuid.UUID) ([]*request.Offer, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fault.ErrNotFound
	}
	if !req.IsParty(actorID) {
		return nil, fault.ErrForbidden
	}
	return s.offerRepo.ListByRequest(ctx, requestID)
}

func (s *Service) offerForDecision(ctx context.Context, offerID, actorID uuid.UUID) (*request.Offer, *request.Request, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, nil, err
	}
	if offer == nil {
		return nil, nil, fault.ErrNotFound
	}
	req, err := s.requestRepo.GetByID(ctx, offer.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, fault.ErrNotFound
	}
	if !req.IsParty(actorID) {
		return nil, nil, fault.ErrForbidden
	}
	if actorID == offer.ProposedBy {
		return nil, nil, fault.ErrForbidden
	}
	if req.Status != request.StatusPending {
		return nil, nil, fault.ErrInvalidState
	}
	if offer.Status != request.OfferStatusOpen {
		return nil, nil, fault.ErrInvalidState
	}
	return offer, req, nil
}
