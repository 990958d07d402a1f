package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// CreateFromRequest locks the item, flips the request to ACCEPTED and
// inserts the transaction inside one database transaction. Either all
// three happen or none do.
func (r *TransactionRepository) CreateFromRequest(ctx context.Context, in transaction.AcceptInput) (*transaction.Transaction, error) {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx)

	res, err := dbTx.Exec(ctx, `
		UPDATE items SET is_available=false, updated_at=NOW()
		WHERE item_id=$1 AND is_available=true
	`, in.ItemID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected() != 1 {
		return nil, fault.ErrItemUnavailable
	}

	res, err = dbTx.Exec(ctx, `
		UPDATE requests SET status='ACCEPTED', updated_at=NOW()
		WHERE request_id=$1 AND status='PENDING'
	`, in.RequestID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected() != 1 {
		return nil, fault.ErrInvalidState
	}

	now := time.Now().UTC()
	t := &transaction.Transaction{
		TransactionID: in.TransactionID,
		ItemID:        in.ItemID,
		RequestID:     in.RequestID,
		RequesterID:   in.RequesterID,
		OwnerID:       in.OwnerID,
		Mode:          in.Mode,
		Status:        transaction.StatusAccepted,
		AgreedPrice:   in.AgreedPrice,
		AgreedDays:    in.AgreedDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	row := dbTx.QueryRow(ctx, `
		INSERT INTO transactions
		(transaction_id, item_id, request_id, requester_id, owner_id, mode, status, agreed_price, agreed_days, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, t.TransactionID, t.ItemID, t.RequestID, t.RequesterID, t.OwnerID, t.Mode, t.Status, t.AgreedPrice, t.AgreedDays, t.CreatedAt, t.UpdatedAt)
	if err := row.Scan(&t.ID); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit accept: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	row := r.pool.QueryRow(ctx, selectTransaction+` WHERE transaction_id=$1`, transactionID)
	return scanTransaction(row)
}

func (r *TransactionRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*transaction.Transaction, error) {
	row := r.pool.QueryRow(ctx, selectTransaction+` WHERE request_id=$1`, requestID)
	return scanTransaction(row)
}

func (r *TransactionRepository) List(ctx context.Context, filter transaction.Filter, limit, offset int) ([]*transaction.Transaction, error) {
	query := selectTransaction
	args := []interface{}{}
	idx := 1
	if filter.ItemID != nil {
		query += " WHERE item_id=$" + itoa(idx)
		args = append(args, *filter.ItemID)
		idx++
	}
	if filter.RequesterID != nil {
		query += addWhere(query) + " requester_id=$" + itoa(idx)
		args = append(args, *filter.RequesterID)
		idx++
	}
	if filter.OwnerID != nil {
		query += addWhere(query) + " owner_id=$" + itoa(idx)
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.PartyID != nil {
		query += addWhere(query) + " (requester_id=$" + itoa(idx) + " OR owner_id=$" + itoa(idx) + ")"
		args = append(args, *filter.PartyID)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Mode != nil {
		query += addWhere(query) + " mode=$" + itoa(idx)
		args = append(args, *filter.Mode)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *TransactionRepository) UpdateStatusIf(ctx context.Context, transactionID uuid.UUID, expected, target transaction.Status) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE transactions SET status=$1, updated_at=NOW()
		WHERE transaction_id=$2 AND status=$3
	`, target, transactionID, expected)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *TransactionRepository) Complete(ctx context.Context, transactionID uuid.UUID, expected transaction.Status, returnedAt time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE transactions SET status='COMPLETED', actual_return_date=$1, updated_at=NOW()
		WHERE transaction_id=$2 AND status=$3
	`, returnedAt, transactionID, expected)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *TransactionRepository) SetDispute(ctx context.Context, transactionID uuid.UUID, expected transaction.Status, reason string, raisedBy uuid.UUID, at time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE transactions
		SET status='DISPUTED', dispute_reason=$1, dispute_raised_by=$2, dispute_at=$3, updated_at=NOW()
		WHERE transaction_id=$4 AND status=$5
	`, reason, raisedBy, at, transactionID, expected)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *TransactionRepository) Activate(ctx context.Context, transactionID uuid.UUID, start, end time.Time) (bool, error) {
	var endDate *time.Time
	if !end.IsZero() {
		endDate = &end
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE transactions SET status='ACTIVE', start_date=$1, end_date=$2, updated_at=NOW()
		WHERE transaction_id=$3 AND status='AGREEMENT_PROPOSED'
	`, start, endDate, transactionID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

// ProposeAgreement flips the transaction to AGREEMENT_PROPOSED and
// inserts the agreement in one database transaction. The loser of a
// concurrent proposal rolls back with no orphan agreement row; the
// UNIQUE constraint on agreements.transaction_id backs this up.
func (r *TransactionRepository) ProposeAgreement(ctx context.Context, a *transaction.Agreement) (bool, error) {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer dbTx.Rollback(ctx)

	res, err := dbTx.Exec(ctx, `
		UPDATE transactions SET status='AGREEMENT_PROPOSED', updated_at=NOW()
		WHERE transaction_id=$1 AND status='ACCEPTED'
	`, a.TransactionID)
	if err != nil {
		return false, err
	}
	if res.RowsAffected() != 1 {
		return false, nil
	}

	_, err = dbTx.Exec(ctx, `
		INSERT INTO agreements
		(agreement_id, transaction_id, final_price, return_date, owner_confirmed, borrower_confirmed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.AgreementID, a.TransactionID, a.FinalPrice, a.ReturnDate, a.OwnerConfirmed, a.BorrowerConfirmed, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit agreement proposal: %w", err)
	}
	return true, nil
}

func (r *TransactionRepository) GetAgreementByTransaction(ctx context.Context, transactionID uuid.UUID) (*transaction.Agreement, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, agreement_id, transaction_id, final_price, return_date, owner_confirmed, borrower_confirmed, created_at, updated_at
		FROM agreements WHERE transaction_id=$1
		ORDER BY created_at DESC LIMIT 1
	`, transactionID)
	var a transaction.Agreement
	if err := row.Scan(&a.ID, &a.AgreementID, &a.TransactionID, &a.FinalPrice, &a.ReturnDate, &a.OwnerConfirmed, &a.BorrowerConfirmed, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *TransactionRepository) ConfirmAgreement(ctx context.Context, agreementID uuid.UUID, role transaction.ConfirmerRole) (bool, error) {
	column := "borrower_confirmed"
	if role == transaction.ConfirmerOwner {
		column = "owner_confirmed"
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE agreements SET `+column+`=true, updated_at=NOW()
		WHERE agreement_id=$1 AND `+column+`=false
	`, agreementID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *TransactionRepository) ListDueRentals(ctx context.Context, limit int) ([]*transaction.Transaction, error) {
	rows, err := r.pool.Query(ctx, selectTransaction+`
		WHERE status='ACTIVE' AND mode='RENT' AND end_date IS NOT NULL
		ORDER BY end_date ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

const selectTransaction = `SELECT id, transaction_id, item_id, request_id, requester_id, owner_id, mode, status, agreed_price, agreed_days, start_date, end_date, actual_return_date, dispute_reason, dispute_raised_by, dispute_at, created_at, updated_at FROM transactions`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	if err := row.Scan(&t.ID, &t.TransactionID, &t.ItemID, &t.RequestID, &t.RequesterID, &t.OwnerID, &t.Mode, &t.Status, &t.AgreedPrice, &t.AgreedDays, &t.StartDate, &t.EndDate, &t.ActualReturnDate, &t.DisputeReason, &t.DisputeRaisedBy, &t.DisputeAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
