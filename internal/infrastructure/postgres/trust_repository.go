package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrustRepository implements trust.Repository. Scores live on the users
// table; the clamp happens in SQL so concurrent deltas compose without
// read-modify-write races.
type TrustRepository struct {
	pool *pgxpool.Pool
}

func NewTrustRepository(pool *pgxpool.Pool) *TrustRepository {
	return &TrustRepository{pool: pool}
}

func (r *TrustRepository) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int) (*int, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET trust_score=LEAST(100, GREATEST(0, trust_score + $1)), updated_at=NOW()
		WHERE user_id=$2
		RETURNING trust_score
	`, delta, userID)
	var score int
	if err := row.Scan(&score); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}

func (r *TrustRepository) GetScore(ctx context.Context, userID uuid.UUID) (*int, error) {
	row := r.pool.QueryRow(ctx, `SELECT trust_score FROM users WHERE user_id=$1`, userID)
	var score int
	if err := row.Scan(&score); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}
