package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/dberrors"
	"github.com/campusops/erp/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

// PgTokenRepository stores refresh and password reset tokens
type PgTokenRepository struct {
	db db.DBTX
}

// NewTokenRepository creates a new PgTokenRepository
func NewTokenRepository(conn db.DBTX) *PgTokenRepository {
	return &PgTokenRepository{db: conn}
}

// Create stores a token
func (r *PgTokenRepository) Create(ctx context.Context, t *models.AuthToken) error {
	sql, args, err := psql.Insert("auth_tokens").
		Columns("token", "uid", "kind", "expires_at", "used", "created_at").
		Values(t.Token, t.UID, string(t.Kind), t.ExpiresAt, t.Used, t.CreatedAt).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create token SQL")
		return fmt.Errorf("failed to build create token query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "auth_tokens_pkey") {
			logger.Warn().Str("uid", t.UID).Msg("Attempted to create duplicate token")
			return apperrors.ErrTokenInvalid
		}
		logger.Error().Err(err).Str("uid", t.UID).Msg("Error executing create token query")
		return fmt.Errorf("error creating token: %w", err)
	}
	return nil
}

// Get retrieves a token of the given kind. Expiry and use are checked by the caller.
func (r *PgTokenRepository) Get(ctx context.Context, token string, kind models.TokenKind) (*models.AuthToken, error) {
	sql, args, err := psql.Select("token", "uid", "kind", "expires_at", "used", "created_at").
		From("auth_tokens").
		Where(squirrel.Eq{"token": token, "kind": string(kind)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get token query: %w", err)
	}

	var t models.AuthToken
	err = r.db.QueryRow(ctx, sql, args...).Scan(&t.Token, &t.UID, &t.Kind, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving token: %w", err)
	}
	return &t, nil
}

// MarkUsed consumes a token
func (r *PgTokenRepository) MarkUsed(ctx context.Context, token string) error {
	sql, args, err := psql.Update("auth_tokens").Set("used", true).Where(squirrel.Eq{"token": token}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark used query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error consuming token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTokenNotFound
	}
	return nil
}

// DeleteByUser removes every token of a user
func (r *PgTokenRepository) DeleteByUser(ctx context.Context, uid string) error {
	sql, args, err := psql.Delete("auth_tokens").Where(squirrel.Eq{"uid": uid}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete tokens query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error deleting tokens: %w", err)
	}
	return nil
}
