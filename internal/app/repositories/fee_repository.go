package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/dberrors"
	"github.com/jackc/pgx/v5"
)

var feeColumns = []string{"student_id", "total_fees", "amount_paid", "payment_history", "due_date", "created_at", "updated_at"}

// PgFeeRepository stores fee ledgers; payment history is a JSONB array
type PgFeeRepository struct {
	db db.DBTX
}

// NewFeeRepository creates a new PgFeeRepository
func NewFeeRepository(conn db.DBTX) *PgFeeRepository {
	return &PgFeeRepository{db: conn}
}

func marshalHistory(history []models.Payment) ([]byte, error) {
	if history == nil {
		history = []models.Payment{}
	}
	return json.Marshal(history)
}

// CreateLedger inserts a ledger
func (r *PgFeeRepository) CreateLedger(ctx context.Context, l *models.FeeLedger) error {
	history, err := marshalHistory(l.PaymentHistory)
	if err != nil {
		return fmt.Errorf("failed to encode payment history: %w", err)
	}

	sql, args, err := psql.Insert("fees").
		Columns(feeColumns...).
		Values(l.StudentID, l.TotalFees, l.AmountPaid, history, l.DueDate, l.CreatedAt, l.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create ledger query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError("fee ledger already exists for student")
		}
		return fmt.Errorf("error creating fee ledger: %w", err)
	}
	return nil
}

func (r *PgFeeRepository) getLedger(ctx context.Context, studentID string, forUpdate bool) (*models.FeeLedger, error) {
	q := psql.Select(feeColumns...).From("fees").Where(squirrel.Eq{"student_id": studentID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get ledger query: %w", err)
	}

	var (
		l       models.FeeLedger
		history []byte
	)
	err = r.db.QueryRow(ctx, sql, args...).Scan(&l.StudentID, &l.TotalFees, &l.AmountPaid, &history,
		&l.DueDate, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrFeeLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving fee ledger: %w", err)
	}
	if err := json.Unmarshal(history, &l.PaymentHistory); err != nil {
		return nil, fmt.Errorf("failed to decode payment history: %w", err)
	}
	return &l, nil
}

// GetLedger retrieves the ledger of a student
func (r *PgFeeRepository) GetLedger(ctx context.Context, studentID string) (*models.FeeLedger, error) {
	return r.getLedger(ctx, studentID, false)
}

// GetLedgerForUpdate retrieves and locks the ledger of a student
func (r *PgFeeRepository) GetLedgerForUpdate(ctx context.Context, studentID string) (*models.FeeLedger, error) {
	return r.getLedger(ctx, studentID, true)
}

// UpdateLedger writes totals and history
func (r *PgFeeRepository) UpdateLedger(ctx context.Context, l *models.FeeLedger) error {
	history, err := marshalHistory(l.PaymentHistory)
	if err != nil {
		return fmt.Errorf("failed to encode payment history: %w", err)
	}

	sql, args, err := psql.Update("fees").
		Set("total_fees", l.TotalFees).
		Set("amount_paid", l.AmountPaid).
		Set("payment_history", history).
		Set("due_date", l.DueDate).
		Set("updated_at", l.UpdatedAt).
		Where(squirrel.Eq{"student_id": l.StudentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update ledger query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating fee ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrFeeLedgerNotFound
	}
	return nil
}

// DeleteLedger removes the ledger of a student
func (r *PgFeeRepository) DeleteLedger(ctx context.Context, studentID string) error {
	sql, args, err := psql.Delete("fees").Where(squirrel.Eq{"student_id": studentID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete ledger query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error deleting fee ledger: %w", err)
	}
	return nil
}
