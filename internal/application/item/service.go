package item

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/campus-share/campus-share/internal/application/audit"
	"github.com/campus-share/campus-share/internal/domain/audit"
	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/item"
)

// Service owns the item registry: listings and the availability flag.
type Service struct {
	repo     item.Repository
	auditSvc *appAudit.Service
	logger   zerolog.Logger
}

// NewService creates an item service.
func NewService(repo item.Repository, auditSvc *appAudit.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		auditSvc: auditSvc,
		logger:   logger.With().Str("service", "item").Logger(),
	}
}

// CreateInput carries a new listing.
type CreateInput struct {
	OwnerID      uuid.UUID
	Title        string
	Description  string
	Mode         item.Mode
	PriceCents   *int
	RentalDays   *int
	InstantClaim bool
}

// Create validates and persists a new listing.
func (s *Service) Create(ctx context.Context, in CreateInput) (*item.Item, error) {
	now := time.Now().UTC()
	i := &item.Item{
		ItemID:       uuid.New(),
		OwnerID:      in.OwnerID,
		Title:        in.Title,
		Description:  in.Description,
		Mode:         in.Mode,
		PriceCents:   in.PriceCents,
		RentalDays:   in.RentalDays,
		InstantClaim: in.InstantClaim,
		IsAvailable:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, i); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeItem,
		EntityID:   i.ItemID.String(),
		Action:     audit.ActionCreate,
		Actor:      in.OwnerID.String(),
		Reason:     "item listed",
	})
	return i, nil
}

// Get retrieves an item by ID.
func (s *Service) Get(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	i, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, fault.ErrNotFound
	}
	return i, nil
}

// List returns items matching the filter.
func (s *Service) List(ctx context.Context, filter item.Filter, limit, offset int) ([]*item.Item, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// UpdateInput carries mutable listing fields.
type UpdateInput struct {
	Title       *string
	Description *string
	PriceCents  *int
	RentalDays  *int
}

// Update changes listing details. Owner only, and not while a
// transaction or confirmed claim holds the item.
func (s *Service) Update(ctx context.Context, itemID, actorID uuid.UUID, in UpdateInput) (*item.Item, error) {
	i, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, fault.ErrNotFound
	}
	if i.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	open, err := s.repo.HasOpenEngagement(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, fault.ErrInvalidState
	}
	if in.Title != nil {
		i.Title = *in.Title
	}
	if in.Description != nil {
		i.Description = *in.Description
	}
	if in.PriceCents != nil {
		i.PriceCents = in.PriceCents
	}
	if in.RentalDays != nil {
		i.RentalDays = in.RentalDays
	}
	i.UpdatedAt = time.Now().UTC()
	if err := i.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, i); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return i, nil
}

// SetAvailability toggles the availability flag. Re-enabling is refused
// while a non-terminal transaction or confirmed claim still references
// the item; availability stays false for the lifetime of an open
// engagement.
func (s *Service) SetAvailability(ctx context.Context, itemID, actorID uuid.UUID, available bool) (*item.Item, error) {
	i, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, fault.ErrNotFound
	}
	if i.OwnerID != actorID {
		return nil, fault.ErrForbidden
	}
	if available {
		open, err := s.repo.HasOpenEngagement(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if open {
			return nil, fault.ErrInvalidState
		}
	}
	i.IsAvailable = available
	i.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, i); err != nil {
		return nil, fmt.Errorf("failed to update item availability: %w", err)
	}
	s.auditSvc.Log(ctx, &audit.Entry{
		EntityType: audit.EntityTypeItem,
		EntityID:   i.ItemID.String(),
		Action:     audit.ActionUpdate,
		Actor:      actorID.String(),
		Reason:     fmt.Sprintf("availability set to %t", available),
	})
	return i, nil
}
