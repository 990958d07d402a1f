package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appNotification "github.com/campus-share/campus-share/internal/application/notification"
	"github.com/campus-share/campus-share/internal/domain/notification"
	"github.com/campus-share/campus-share/internal/domain/transaction"
)

const (
	// Reminders start this many calendar days before the return date.
	reminderWindowDays = 3
	sweepBatchSize     = 500
)

// Service periodically scans active rentals and notifies parties of
// upcoming and overdue returns. Sweeps are idempotent: each candidate
// notification carries a per-day dedupe key, so re-running a sweep (or
// running it from several processes) never duplicates delivery.
type Service struct {
	txRepo   transaction.Repository
	notifier *appNotification.Service
	logger   zerolog.Logger
}

// NewService creates a reminder service.
func NewService(txRepo transaction.Repository, notifier *appNotification.Service, logger zerolog.Logger) *Service {
	return &Service{
		txRepo:   txRepo,
		notifier: notifier,
		logger:   logger.With().Str("service", "reminder").Logger(),
	}
}

// Run sweeps on the given interval until the context is cancelled. One
// sweep runs immediately on startup.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.Sweep(ctx, time.Now().UTC())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(ctx, now.UTC())
		}
	}
}

// Sweep examines every active rental with a set end date once. A bad
// row is logged and skipped; it never aborts the rest of the sweep.
func (s *Service) Sweep(ctx context.Context, now time.Time) {
	txs, err := s.txRepo.ListDueRentals(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list due rentals")
		return
	}

	var sent int
	for _, tx := range txs {
		if tx.EndDate == nil {
			continue
		}
		sent += s.remind(ctx, tx, daysUntil(now, *tx.EndDate), now)
	}
	s.logger.Debug().Int("candidates", len(txs)).Int("notified", sent).Msg("reminder sweep finished")
}

func (s *Service) remind(ctx context.Context, tx *transaction.Transaction, days int, now time.Time) int {
	switch {
	case days > reminderWindowDays:
		return 0
	case days >= 2:
		return s.send(ctx, tx, tx.RequesterID, notification.TypeReturnReminder,
			"Return coming up",
			fmt.Sprintf("The item is due back in %d days", days), now)
	case days == 1:
		return s.send(ctx, tx, tx.RequesterID, notification.TypeReturnReminder,
			"Return due tomorrow",
			"The item is due back tomorrow", now)
	case days == 0:
		n := s.send(ctx, tx, tx.RequesterID, notification.TypeReturnReminder,
			"Return due today",
			"The item is due back today", now)
		n += s.send(ctx, tx, tx.OwnerID, notification.TypeReturnReminder,
			"Return due today",
			"Your item is due back today", now)
		return n
	default:
		overdue := -days
		n := s.send(ctx, tx, tx.RequesterID, notification.TypeReturnOverdue,
			"Return overdue",
			fmt.Sprintf("The item is %d days overdue", overdue), now)
		n += s.send(ctx, tx, tx.OwnerID, notification.TypeReturnOverdue,
			"Return overdue",
			fmt.Sprintf("Your item is %d days overdue", overdue), now)
		return n
	}
}

func (s *Service) send(ctx context.Context, tx *transaction.Transaction, recipientID uuid.UUID, typ notification.Type, title, message string, now time.Time) int {
	key := notification.DailyDedupeKey(typ, tx.TransactionID, recipientID, now)
	created := s.notifier.Notify(ctx, appNotification.Input{
		RecipientID: recipientID,
		Type:        typ,
		Title:       title,
		Message:     message,
		RelatedType: "TRANSACTION",
		RelatedID:   tx.TransactionID,
		DedupeKey:   &key,
		Room:        notification.TransactionRoom(tx.TransactionID),
	})
	if created {
		return 1
	}
	return 0
}

// daysUntil counts whole UTC calendar days from now until due; negative
// once the due day has passed.
func daysUntil(now, due time.Time) int {
	nowDay := now.UTC().Truncate(24 * time.Hour)
	dueDay := due.UTC().Truncate(24 * time.Hour)
	return int(dueDay.Sub(nowDay) / (24 * time.Hour))
}
