package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
)

var sagaColumns = []string{"id", "auth_uid", "email", "role", "state", "attempts", "last_error", "created_at", "updated_at"}

// PgSagaRepository tracks provisioning sagas
type PgSagaRepository struct {
	db db.DBTX
}

// NewSagaRepository creates a new PgSagaRepository
func NewSagaRepository(conn db.DBTX) *PgSagaRepository {
	return &PgSagaRepository{db: conn}
}

func scanSaga(row rowScanner) (*models.ProvisioningSaga, error) {
	var s models.ProvisioningSaga
	err := row.Scan(&s.ID, &s.AuthUID, &s.Email, &s.Role, &s.State, &s.Attempts, &s.LastError, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create records a new saga
func (r *PgSagaRepository) Create(ctx context.Context, s *models.ProvisioningSaga) error {
	sql, args, err := psql.Insert("provisioning_sagas").
		Columns(sagaColumns...).
		Values(s.ID, s.AuthUID, s.Email, s.Role, s.State, s.Attempts, s.LastError, s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create saga query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error creating saga: %w", err)
	}
	return nil
}

// Get retrieves a saga
func (r *PgSagaRepository) Get(ctx context.Context, id string) (*models.ProvisioningSaga, error) {
	sql, args, err := psql.Select(sagaColumns...).From("provisioning_sagas").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get saga query: %w", err)
	}
	s, err := scanSaga(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrSagaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving saga: %w", err)
	}
	return s, nil
}

// UpdateState moves a saga to state and counts the attempt
func (r *PgSagaRepository) UpdateState(ctx context.Context, id string, state models.SagaState, lastError string) error {
	sql, args, err := psql.Update("provisioning_sagas").
		Set("state", state).
		Set("last_error", lastError).
		Set("attempts", squirrel.Expr("attempts + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update saga query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating saga: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSagaNotFound
	}
	return nil
}

// ListPending returns PENDING sagas last touched before olderThan, oldest first
func (r *PgSagaRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*models.ProvisioningSaga, error) {
	sql, args, err := psql.Select(sagaColumns...).From("provisioning_sagas").
		Where(squirrel.Eq{"state": models.SagaPending}).
		Where(squirrel.Lt{"updated_at": olderThan}).
		OrderBy("updated_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list pending sagas query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing pending sagas: %w", err)
	}
	defer rows.Close()

	var sagas []*models.ProvisioningSaga
	for rows.Next() {
		s, err := scanSaga(rows)
		if err != nil {
			return nil, err
		}
		sagas = append(sagas, s)
	}
	return sagas, rows.Err()
}
