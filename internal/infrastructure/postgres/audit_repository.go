package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-share/campus-share/internal/domain/audit"
)

// AuditRepository implements audit.Repository.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_entries
		(audit_id, entity_type, entity_id, action, actor, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.AuditID, e.EntityType, e.EntityID, e.Action, e.Actor, e.Reason, e.CreatedAt)
	return err
}

func (r *AuditRepository) Query(ctx context.Context, filter audit.QueryFilter, limit, offset int) ([]*audit.Entry, error) {
	query := `SELECT id, audit_id, entity_type, entity_id, action, actor, reason, created_at FROM audit_entries`
	args := []interface{}{}
	idx := 1
	if filter.EntityType != nil {
		query += " WHERE entity_type=$" + itoa(idx)
		args = append(args, *filter.EntityType)
		idx++
	}
	if filter.EntityID != nil {
		query += addWhere(query) + " entity_id=$" + itoa(idx)
		args = append(args, *filter.EntityID)
		idx++
	}
	if filter.Action != nil {
		query += addWhere(query) + " action=$" + itoa(idx)
		args = append(args, *filter.Action)
		idx++
	}
	if filter.Actor != nil {
		query += addWhere(query) + " actor=$" + itoa(idx)
		args = append(args, *filter.Actor)
		idx++
	}
	if filter.StartTime != nil {
		query += addWhere(query) + " created_at >= $" + itoa(idx)
		args = append(args, *filter.StartTime)
		idx++
	}
	if filter.EndTime != nil {
		query += addWhere(query) + " created_at <= $" + itoa(idx)
		args = append(args, *filter.EndTime)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.AuditID, &e.EntityType, &e.EntityID, &e.Action, &e.Actor, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
