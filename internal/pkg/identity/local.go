package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/auth"
	"github.com/google/uuid"
)

// LocalConfig configures the database-backed provider
type LocalConfig struct {
	ResetURL      string
	ResetTokenTTL time.Duration
	// BcryptCost defaults to auth.BcryptCost
	BcryptCost int
}

// Local is a Provider that keeps credentials in the ERP database and issues its own JWTs.
// It additionally supports password sign-in, refresh and password reset.
type Local struct {
	repos *repositories.Repositories
	jwt   *auth.JWTService
	cfg   LocalConfig
	now   func() time.Time
}

var _ Provider = (*Local)(nil)

// NewLocal creates a local provider on repos, which must not be bound to a transaction
func NewLocal(repos *repositories.Repositories, jwtService *auth.JWTService, cfg LocalConfig) *Local {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = auth.BcryptCost
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &Local{repos: repos, jwt: jwtService, cfg: cfg, now: time.Now}
}

func toRecord(c *models.Credential) *UserRecord {
	return &UserRecord{
		UID:          c.UID,
		Email:        c.Email,
		DisplayName:  c.DisplayName,
		Disabled:     c.Disabled,
		CustomClaims: c.Claims,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}

// GetUserByEmail implements Provider
func (l *Local) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	cred, err := l.repos.Credentials.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return toRecord(cred), nil
}

// CreateUser implements Provider
func (l *Local) CreateUser(ctx context.Context, p CreateUserParams) (*UserRecord, error) {
	if p.UID == "" {
		p.UID = uuid.New().String()
	}
	hash, err := auth.HashPasswordWithCost(p.Password, l.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	cred := &models.Credential{
		UID:          p.UID,
		Email:        strings.ToLower(p.Email),
		DisplayName:  p.DisplayName,
		PasswordHash: hash,
		Claims:       map[string]interface{}{},
		CreatedAt:    l.now().UTC(),
	}
	if err := l.repos.Credentials.Create(ctx, cred); err != nil {
		return nil, err
	}
	return toRecord(cred), nil
}

// SetCustomUserClaims implements Provider
func (l *Local) SetCustomUserClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	return mapNotFound(l.repos.Credentials.SetClaims(ctx, uid, claims))
}

// DeleteUser implements Provider. Refresh and reset tokens of the user are removed too.
func (l *Local) DeleteUser(ctx context.Context, uid string) error {
	if err := l.repos.Credentials.Delete(ctx, uid); err != nil {
		return mapNotFound(err)
	}
	return l.repos.Tokens.DeleteByUser(ctx, uid)
}

// GeneratePasswordResetLink implements Provider
func (l *Local) GeneratePasswordResetLink(ctx context.Context, email string) (string, error) {
	cred, err := l.repos.Credentials.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return "", mapNotFound(err)
	}

	token := &models.AuthToken{
		Token:     uuid.New().String(),
		UID:       cred.UID,
		Kind:      models.TokenKindPasswordReset,
		ExpiresAt: l.now().Add(l.cfg.ResetTokenTTL).UTC(),
		CreatedAt: l.now().UTC(),
	}
	if err := l.repos.Tokens.Create(ctx, token); err != nil {
		return "", err
	}

	link, err := url.Parse(l.cfg.ResetURL)
	if err != nil {
		return "", fmt.Errorf("invalid reset url: %w", err)
	}
	q := link.Query()
	q.Set("token", token.Token)
	link.RawQuery = q.Encode()
	return link.String(), nil
}

// VerifyIDToken implements Provider
func (l *Local) VerifyIDToken(_ context.Context, idToken string) (*Token, error) {
	claims, err := l.jwt.ValidateToken(idToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}
	return &Token{UID: claims.UID(), Email: claims.Email, Claims: claims.Custom}, nil
}

// SignIn checks the password and issues a token pair
func (l *Local) SignIn(ctx context.Context, email, password string) (*auth.TokenPair, *UserRecord, error) {
	cred, err := l.repos.Credentials.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil, apperrors.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !auth.CheckPassword(cred.PasswordHash, password) {
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if cred.Disabled {
		return nil, nil, apperrors.ErrAccountDisabled
	}

	pair, err := l.issue(ctx, cred)
	if err != nil {
		return nil, nil, err
	}
	return pair, toRecord(cred), nil
}

// Refresh redeems a refresh token for a new pair. The old refresh token is single use.
func (l *Local) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	tok, err := l.repos.Tokens.Get(ctx, refreshToken, models.TokenKindRefresh)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	if tok.Used {
		return nil, apperrors.ErrTokenRevoked
	}
	if !tok.Usable(l.now()) {
		return nil, apperrors.ErrTokenExpired
	}

	cred, err := l.repos.Credentials.GetByUID(ctx, tok.UID)
	if err != nil {
		return nil, apperrors.ErrTokenInvalid
	}
	if cred.Disabled {
		return nil, apperrors.ErrAccountDisabled
	}
	if err := l.repos.Tokens.MarkUsed(ctx, refreshToken); err != nil {
		return nil, err
	}
	return l.issue(ctx, cred)
}

// ResetPassword redeems a password reset token
func (l *Local) ResetPassword(ctx context.Context, token, newPassword string) error {
	tok, err := l.repos.Tokens.Get(ctx, token, models.TokenKindPasswordReset)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return apperrors.ErrInvalidPasswordResetToken
		}
		return err
	}
	if tok.Used {
		return apperrors.ErrPasswordResetTokenUsed
	}
	if !tok.Usable(l.now()) {
		return apperrors.ErrInvalidPasswordResetToken
	}

	hash, err := auth.HashPasswordWithCost(newPassword, l.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := l.repos.Credentials.UpdatePassword(ctx, tok.UID, hash); err != nil {
		return mapNotFound(err)
	}
	return l.repos.Tokens.MarkUsed(ctx, token)
}

func (l *Local) issue(ctx context.Context, cred *models.Credential) (*auth.TokenPair, error) {
	pair, err := l.jwt.GenerateTokenPair(cred.UID, cred.Email, cred.Claims)
	if err != nil {
		return nil, err
	}
	refresh := &models.AuthToken{
		Token:     pair.RefreshToken,
		UID:       cred.UID,
		Kind:      models.TokenKindRefresh,
		ExpiresAt: l.jwt.RefreshTokenExpiry().UTC(),
		CreatedAt: l.now().UTC(),
	}
	if err := l.repos.Tokens.Create(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return pair, nil
}
