package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campus-share/campus-share/internal/domain/audit"
)

// Service handles audit log operations.
type Service struct {
	repo   audit.Repository
	logger zerolog.Logger
}

// NewService creates an audit service.
func NewService(repo audit.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "audit").Logger(),
	}
}

// Log records an audit entry asynchronously. Failures are logged only.
func (s *Service) Log(ctx context.Context, entry *audit.Entry) {
	go func() {
		if err := s.LogSync(context.Background(), entry); err != nil {
			s.logger.Error().Err(err).
				Str("entityType", string(entry.EntityType)).
				Str("entityId", entry.EntityID).
				Str("action", string(entry.Action)).
				Msg("failed to create audit entry")
		}
	}()
}

// LogSync records an audit entry synchronously.
func (s *Service) LogSync(ctx context.Context, entry *audit.Entry) error {
	if entry.AuditID == uuid.Nil {
		entry.AuditID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.repo.Create(ctx, entry)
}

// Query returns audit entries matching the filter.
func (s *Service) Query(ctx context.Context, filter audit.QueryFilter, limit, offset int) ([]*audit.Entry, error) {
	return s.repo.Query(ctx, filter, limit, offset)
}
