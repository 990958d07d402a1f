package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-share/campus-share/internal/domain/item"
)

// ItemRepository implements item.Repository.
type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) Create(ctx context.Context, i *item.Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO items
		(item_id, owner_id, title, description, mode, price_cents, rental_days, instant_claim, is_available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, i.ItemID, i.OwnerID, i.Title, i.Description, i.Mode, i.PriceCents, i.RentalDays, i.InstantClaim, i.IsAvailable, i.CreatedAt, i.UpdatedAt)
	return err
}

func (r *ItemRepository) GetByID(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, item_id, owner_id, title, description, mode, price_cents, rental_days, instant_claim, is_available, created_at, updated_at
		FROM items WHERE item_id=$1
	`, itemID)
	return scanItem(row)
}

func (r *ItemRepository) List(ctx context.Context, filter item.Filter, limit, offset int) ([]*item.Item, error) {
	query := `SELECT id, item_id, owner_id, title, description, mode, price_cents, rental_days, instant_claim, is_available, created_at, updated_at FROM items`
	args := []interface{}{}
	idx := 1
	if filter.OwnerID != nil {
		query += " WHERE owner_id=$" + itoa(idx)
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.Mode != nil {
		query += addWhere(query) + " mode=$" + itoa(idx)
		args = append(args, *filter.Mode)
		idx++
	}
	if filter.IsAvailable != nil {
		query += addWhere(query) + " is_available=$" + itoa(idx)
		args = append(args, *filter.IsAvailable)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*item.Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (r *ItemRepository) Update(ctx context.Context, i *item.Item) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE items
		SET title=$1, description=$2, mode=$3, price_cents=$4, rental_days=$5, instant_claim=$6, is_available=$7, updated_at=$8
		WHERE item_id=$9
	`, i.Title, i.Description, i.Mode, i.PriceCents, i.RentalDays, i.InstantClaim, i.IsAvailable, i.UpdatedAt, i.ItemID)
	return err
}

func (r *ItemRepository) Lock(ctx context.Context, itemID uuid.UUID) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE items SET is_available=false, updated_at=NOW()
		WHERE item_id=$1 AND is_available=true
	`, itemID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *ItemRepository) Release(ctx context.Context, itemID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE items SET is_available=true, updated_at=NOW()
		WHERE item_id=$1 AND is_available=false
	`, itemID)
	return err
}

func (r *ItemRepository) HasOpenEngagement(ctx context.Context, itemID uuid.UUID) (bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE item_id=$1 AND status NOT IN ('COMPLETED','DISPUTED','CANCELLED')
		) OR EXISTS (
			SELECT 1 FROM claims WHERE item_id=$1 AND status='CONFIRMED'
		)
	`, itemID)
	var open bool
	if err := row.Scan(&open); err != nil {
		return false, err
	}
	return open, nil
}

func scanItem(row pgx.Row) (*item.Item, error) {
	var i item.Item
	if err := row.Scan(&i.ID, &i.ItemID, &i.OwnerID, &i.Title, &i.Description, &i.Mode, &i.PriceCents, &i.RentalDays, &i.InstantClaim, &i.IsAvailable, &i.CreatedAt, &i.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}
