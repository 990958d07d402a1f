package trust

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for trust scores.
type Repository interface {
	// ApplyDelta adjusts the user's score by delta, clamped to
	// [MinScore, MaxScore] in a single conditional update, and returns the
	// resulting score. Returns (nil, nil) when the user does not exist.
	ApplyDelta(ctx context.Context, userID uuid.UUID, delta int) (*int, error)
	// GetScore returns the current score, or nil when the user does not
	// exist.
	GetScore(ctx context.Context, userID uuid.UUID) (*int, error)
}
