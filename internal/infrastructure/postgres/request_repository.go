package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-share/campus-share/internal/domain/fault"
	"github.com/campus-share/campus-share/internal/domain/request"
)

const uniqueViolation = "23505"

// RequestRepository implements request.Repository.
type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO requests
		(request_id, item_id, requester_id, owner_id, status, proposed_price, proposed_days, message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, req.RequestID, req.ItemID, req.RequesterID, req.OwnerID, req.Status, req.ProposedPrice, req.ProposedDays, req.Message, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fault.ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, request_id, item_id, requester_id, owner_id, status, proposed_price, proposed_days, message, created_at, updated_at
		FROM requests WHERE request_id=$1
	`, requestID)
	return scanRequest(row)
}

func (r *RequestRepository) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	query := `SELECT id, request_id, item_id, requester_id, owner_id, status, proposed_price, proposed_days, message, created_at, updated_at FROM requests`
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
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []*request.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *RequestRepository) UpdateStatusIf(ctx context.Context, requestID uuid.UUID, expected, target request.Status) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE requests SET status=$1, updated_at=NOW()
		WHERE request_id=$2 AND status=$3
	`, target, requestID, expected)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *RequestRepository) UpdateTerms(ctx context.Context, requestID uuid.UUID, price, days *int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE requests SET proposed_price=$1, proposed_days=$2, updated_at=NOW()
		WHERE request_id=$3
	`, price, days, requestID)
	return err
}

func scanRequest(row pgx.Row) (*request.Request, error) {
	var req request.Request
	if err := row.Scan(&req.ID, &req.RequestID, &req.ItemID, &req.RequesterID, &req.OwnerID, &req.Status, &req.ProposedPrice, &req.ProposedDays, &req.Message, &req.CreatedAt, &req.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// OfferRepository implements request.OfferRepository.
type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func (r *OfferRepository) Create(ctx context.Context, o *request.Offer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO offers
		(offer_id, request_id, proposed_by, price_cents, rental_days, note, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, o.OfferID, o.RequestID, o.ProposedBy, o.PriceCents, o.RentalDays, o.Note, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID uuid.UUID) (*request.Offer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, offer_id, request_id, proposed_by, price_cents, rental_days, note, status, created_at, updated_at
		FROM offers WHERE offer_id=$1
	`, offerID)
	return scanOffer(row)
}

func (r *OfferRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*request.Offer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, offer_id, request_id, proposed_by, price_cents, rental_days, note, status, created_at, updated_at
		FROM offers WHERE request_id=$1 ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var offers []*request.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *OfferRepository) UpdateStatusIf(ctx context.Context, offerID uuid.UUID, expected, target request.OfferStatus) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE offers SET status=$1, updated_at=NOW()
		WHERE offer_id=$2 AND status=$3
	`, target, offerID, expected)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *OfferRepository) SupersedeOpen(ctx context.Context, requestID uuid.UUID, except uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE offers SET status='SUPERSEDED', updated_at=NOW()
		WHERE request_id=$1 AND status='OPEN' AND offer_id <> $2
	`, requestID, except)
	return err
}

func scanOffer(row pgx.Row) (*request.Offer, error) {
	var o request.Offer
	if err := row.Scan(&o.ID, &o.OfferID, &o.RequestID, &o.ProposedBy, &o.PriceCents, &o.RentalDays, &o.Note, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
