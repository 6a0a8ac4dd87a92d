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

var credentialColumns = []string{"uid", "email", "display_name", "password_hash", "claims", "disabled", "created_at"}

// PgCredentialRepository stores accounts of the local identity provider
type PgCredentialRepository struct {
	db db.DBTX
}

// NewCredentialRepository creates a new PgCredentialRepository
func NewCredentialRepository(conn db.DBTX) *PgCredentialRepository {
	return &PgCredentialRepository{db: conn}
}

func marshalClaims(claims map[string]interface{}) ([]byte, error) {
	if claims == nil {
		claims = map[string]interface{}{}
	}
	return json.Marshal(claims)
}

// Create inserts an account
func (r *PgCredentialRepository) Create(ctx context.Context, c *models.Credential) error {
	claims, err := marshalClaims(c.Claims)
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}

	sql, args, err := psql.Insert("auth_accounts").
		Columns(credentialColumns...).
		Values(c.UID, c.Email, c.DisplayName, c.PasswordHash, claims, c.Disabled, c.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create account query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrEmailAlreadyExists
		}
		return fmt.Errorf("error creating account: %w", err)
	}
	return nil
}

func (r *PgCredentialRepository) get(ctx context.Context, where squirrel.Sqlizer) (*models.Credential, error) {
	sql, args, err := psql.Select(credentialColumns...).From("auth_accounts").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get account query: %w", err)
	}

	var (
		c      models.Credential
		claims []byte
	)
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.UID, &c.Email, &c.DisplayName, &c.PasswordHash, &claims, &c.Disabled, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving account: %w", err)
	}
	if err := json.Unmarshal(claims, &c.Claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}
	return &c, nil
}

// GetByUID retrieves an account by UID
func (r *PgCredentialRepository) GetByUID(ctx context.Context, uid string) (*models.Credential, error) {
	return r.get(ctx, squirrel.Eq{"uid": uid})
}

// GetByEmail retrieves an account by email
func (r *PgCredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return r.get(ctx, squirrel.Eq{"email": email})
}

func (r *PgCredentialRepository) update(ctx context.Context, uid string, column string, value interface{}) error {
	sql, args, err := psql.Update("auth_accounts").Set(column, value).Where(squirrel.Eq{"uid": uid}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update account query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// SetClaims replaces the custom claims of an account
func (r *PgCredentialRepository) SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	encoded, err := marshalClaims(claims)
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}
	return r.update(ctx, uid, "claims", encoded)
}

// UpdatePassword replaces the password hash of an account
func (r *PgCredentialRepository) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	return r.update(ctx, uid, "password_hash", passwordHash)
}

// Delete removes an account
func (r *PgCredentialRepository) Delete(ctx context.Context, uid string) error {
	sql, args, err := psql.Delete("auth_accounts").Where(squirrel.Eq{"uid": uid}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete account query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
