package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-share/campus-share/internal/domain/claim"
	"github.com/campus-share/campus-share/internal/domain/fault"
)

// ClaimRepository implements claim.Repository.
type ClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

func (r *ClaimRepository) Create(ctx context.Context, e *claim.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO claims
		(claim_id, item_id, requester_id, owner_id, status, note, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ClaimID, e.ItemID, e.RequesterID, e.OwnerID, e.Status, e.Note, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *ClaimRepository) GetByID(ctx context.Context, claimID uuid.UUID) (*claim.Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, claim_id, item_id, requester_id, owner_id, status, note, created_at, updated_at
		FROM claims WHERE claim_id=$1
	`, claimID)
	return scanClaim(row)
}

func (r *ClaimRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*claim.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, claim_id, item_id, requester_id, owner_id, status, note, created_at, updated_at
		FROM claims WHERE item_id=$1 ORDER BY created_at ASC
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClaims(rows)
}

func (r *ClaimRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*claim.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, claim_id, item_id, requester_id, owner_id, status, note, created_at, updated_at
		FROM claims WHERE requester_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, requesterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClaims(rows)
}

func (r *ClaimRepository) HasQueued(ctx context.Context, itemID, requesterID uuid.UUID) (bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT 1 FROM claims WHERE item_id=$1 AND requester_id=$2 AND status='QUEUED' LIMIT 1
	`, itemID, requesterID)
	var v int
	if err := row.Scan(&v); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ClaimRepository) UpdateStatusIf(ctx context.Context, claimID uuid.UUID, expected, target claim.Status) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE claims SET status=$1, updated_at=NOW()
		WHERE claim_id=$2 AND status=$3
	`, target, claimID, expected)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

// Confirm locks the item and flips the entry from QUEUED to CONFIRMED
// inside one database transaction.
func (r *ClaimRepository) Confirm(ctx context.Context, claimID uuid.UUID) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer dbTx.Rollback(ctx)

	res, err := dbTx.Exec(ctx, `
		UPDATE items SET is_available=false, updated_at=NOW()
		WHERE item_id=(SELECT item_id FROM claims WHERE claim_id=$1) AND is_available=true
	`, claimID)
	if err != nil {
		return err
	}
	if res.RowsAffected() != 1 {
		return fault.ErrItemUnavailable
	}

	res, err = dbTx.Exec(ctx, `
		UPDATE claims SET status='CONFIRMED', updated_at=NOW()
		WHERE claim_id=$1 AND status='QUEUED'
	`, claimID)
	if err != nil {
		return err
	}
	if res.RowsAffected() != 1 {
		return fault.ErrInvalidState
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit claim confirm: %w", err)
	}
	return nil
}

func collectClaims(rows pgx.Rows) ([]*claim.Entry, error) {
	var entries []*claim.Entry
	for rows.Next() {
		e, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanClaim(row pgx.Row) (*claim.Entry, error) {
	var e claim.Entry
	if err := row.Scan(&e.ID, &e.ClaimID, &e.ItemID, &e.RequesterID, &e.OwnerID, &e.Status, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
