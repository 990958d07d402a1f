package item

import "testing"

func intPtr(v int) *int { return &v }

func TestValidate(t *testing.T) {
	base := func() *Item {
		return &Item{Title: "Bike", Mode: ModeRent, PriceCents: intPtr(500), RentalDays: intPtr(7)}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected valid rental item: %v", err)
	}

	i := base()
	i.Title = ""
	if err := i.Validate(); err == nil {
		t.Fatal("expected error for empty title")
	}

	i = base()
	i.Mode = Mode("BARTER")
	if err := i.Validate(); err == nil {
		t.Fatal("expected error for unknown mode")
	}

	i = base()
	i.PriceCents = nil
	if err := i.Validate(); err == nil {
		t.Fatal("expected error for rent without price")
	}

	i = base()
	i.PriceCents = intPtr(-1)
	if err := i.Validate(); err == nil {
		t.Fatal("expected error for negative price")
	}

	i = base()
	i.RentalDays = intPtr(0)
	if err := i.Validate(); err == nil {
		t.Fatal("expected error for zero rental days")
	}

	i = base()
	i.InstantClaim = true
	if err := i.Validate(); err == nil {
		t.Fatal("expected error: instant claim on a rental")
	}

	give := &Item{Title: "Old textbook", Mode: ModeGive, InstantClaim: true}
	if err := give.Validate(); err != nil {
		t.Fatalf("expected valid give-away: %v", err)
	}
	give.PriceCents = intPtr(100)
	if err := give.Validate(); err == nil {
		t.Fatal("expected error for priced give-away")
	}

	sell := &Item{Title: "Lamp", Mode: ModeSell, PriceCents: intPtr(0)}
	if err := sell.Validate(); err != nil {
		t.Fatalf("expected valid free sale: %v", err)
	}
}

func TestClaimable(t *testing.T) {
	i := &Item{Title: "Chair", Mode: ModeGive, InstantClaim: true, IsAvailable: true}
	if !i.Claimable() {
		t.Fatal("expected claimable give-away")
	}
	i.IsAvailable = false
	if i.Claimable() {
		t.Fatal("unavailable item must not be claimable")
	}
	i.IsAvailable = true
	i.InstantClaim = false
	if i.Claimable() {
		t.Fatal("give-away without instant claim must not be claimable")
	}
	sell := &Item{Title: "Lamp", Mode: ModeSell, PriceCents: intPtr(100), InstantClaim: false, IsAvailable: true}
	if sell.Claimable() {
		t.Fatal("sale must not be claimable")
	}
}
