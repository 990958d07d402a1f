package claim

import (
	"time"

	"github.com/google/uuid"
)

// Status represents claim entry status.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Entry represents one claimant's position in the instant-claim queue of
// a give-away item. Entries are displayed first-come-first-served by
// submission time; the owner retains discretion over which entry to
// confirm.
type Entry struct {
	ID          int64     `json:"id"`
	ClaimID     uuid.UUID `json:"claimId"`
	ItemID      uuid.UUID `json:"itemId"`
	RequesterID uuid.UUID `json:"requesterId"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Status      Status    `json:"status"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CanTransitionTo validates a claim status transition.
func (e *Entry) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusQueued:    {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted},
		StatusCompleted: {},
		StatusCancelled: {},
	}
	for _, s := range transitions[e.Status] {
		if s == target {
			return true
		}
	}
	return false
}
