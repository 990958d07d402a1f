package trust

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campus-share/campus-share/internal/domain/trust"
)

// Service maintains the bounded reputation counter per user. Score
// updates are a best-effort side effect of lifecycle transitions: a
// failure here must never fail the transition that triggered it, so
// every method swallows errors after logging.
type Service struct {
	repo   trust.Repository
	logger zerolog.Logger
}

// NewService creates a trust service.
func NewService(repo trust.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "trust").Logger(),
	}
}

// Result describes a user's score after an adjustment or lookup.
type Result struct {
	UserID uuid.UUID   `json:"userId"`
	Score  int         `json:"score"`
	Level  trust.Level `json:"level"`
}

// Apply adjusts the user's score by the fixed delta for the action,
// clamped to [0,100]. Unknown actions and missing users yield a nil
// result, never an error.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, action trust.Action) *Result {
	delta, err := trust.Delta(action)
	if err != nil {
		s.logger.Warn().Str("user_id", userID.String()).Str("action", string(action)).Msg("unknown trust action")
		return nil
	}
	score, err := s.repo.ApplyDelta(ctx, userID, delta)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Str("action", string(action)).Msg("failed to apply trust delta")
		return nil
	}
	if score == nil {
		s.logger.Warn().Str("user_id", userID.String()).Str("action", string(action)).Msg("trust update for unknown user")
		return nil
	}
	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("action", string(action)).
		Int("delta", delta).
		Int("score", *score).
		Msg("trust score adjusted")
	return &Result{UserID: userID, Score: *score, Level: trust.LevelFor(*score)}
}

// ScoreOf returns the current score and level for a user.
func (s *Service) ScoreOf(ctx context.Context, userID uuid.UUID) (*Result, error) {
	score, err := s.repo.GetScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if score == nil {
		return nil, nil
	}
	return &Result{UserID: userID, Score: *score, Level: trust.LevelFor(*score)}, nil
}
