package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/db"
	"github.com/jackc/pgx/v5"
)

// PgCounterRepository stores counters in the counters table
type PgCounterRepository struct {
	db db.DBTX
}

// NewCounterRepository creates a new PgCounterRepository
func NewCounterRepository(conn db.DBTX) *PgCounterRepository {
	return &PgCounterRepository{db: conn}
}

// Next increments the counter for key, creating it at 1, and returns the new value.
// The upsert takes a row lock, so concurrent callers on one key are serialized.
func (r *PgCounterRepository) Next(ctx context.Context, key string) (int64, error) {
	sql, args, err := psql.Insert("counters").
		Columns("key", "current").
		Values(key, 1).
		Suffix("ON CONFLICT (key) DO UPDATE SET current = counters.current + 1 RETURNING current").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build next sequence query: %w", err)
	}

	var current int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&current); err != nil {
		return 0, fmt.Errorf("error incrementing counter %s: %w", key, err)
	}
	return current, nil
}

// Get returns the current value, 0 when the counter does not exist yet
func (r *PgCounterRepository) Get(ctx context.Context, key string) (int64, error) {
	sql, args, err := psql.Select("current").From("counters").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build get counter query: %w", err)
	}

	var current int64
	err = r.db.QueryRow(ctx, sql, args...).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error reading counter %s: %w", key, err)
	}
	return current, nil
}
