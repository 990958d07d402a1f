package item

import (
	"time"

	"github.com/google/uuid"

	"github.com/campus-share/campus-share/internal/domain/fault"
)

// Mode represents how an item is shared.
type Mode string

const (
	ModeRent Mode = "RENT"
	ModeSell Mode = "SELL"
	ModeGive Mode = "GIVE"
)

// Item represents a listed physical object.
type Item struct {
	ID           int64     `json:"id"`
	ItemID       uuid.UUID `json:"itemId"`
	OwnerID      uuid.UUID `json:"ownerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Mode         Mode      `json:"mode"`
	PriceCents   *int      `json:"priceCents,omitempty"`
	RentalDays   *int      `json:"rentalDays,omitempty"`
	InstantClaim bool      `json:"instantClaim"`
	IsAvailable  bool      `json:"isAvailable"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ValidateMode checks the sharing mode.
func ValidateMode(mode Mode) error {
	switch mode {
	case ModeRent, ModeSell, ModeGive:
		return nil
	default:
		return fault.ErrValidation
	}
}

// Validate checks listing invariants: RENT and SELL items carry a
// non-negative price, GIVE items carry none, and instant claim applies
// to GIVE items only.
func (i *Item) Validate() error {
	if i.Title == "" {
		return fault.ErrValidation
	}
	if err := ValidateMode(i.Mode); err != nil {
		return err
	}
	switch i.Mode {
	case ModeRent, ModeSell:
		if i.PriceCents == nil || *i.PriceCents < 0 {
			return fault.ErrValidation
		}
		if i.InstantClaim {
			return fault.ErrValidation
		}
	case ModeGive:
		if i.PriceCents != nil && *i.PriceCents != 0 {
			return fault.ErrValidation
		}
	}
	if i.Mode == ModeRent && i.RentalDays != nil && *i.RentalDays <= 0 {
		return fault.ErrValidation
	}
	return nil
}

// Claimable reports whether the item accepts instant claims.
func (i *Item) Claimable() bool {
	return i.Mode == ModeGive && i.InstantClaim && i.IsAvailable
}
