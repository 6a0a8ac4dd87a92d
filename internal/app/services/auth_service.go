package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/auth"
	"github.com/campusops/erp/internal/pkg/email"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PasswordAuthenticator signs users in with a password. Only the local identity
// provider implements it; with Firebase, clients sign in against Firebase directly.
type PasswordAuthenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.TokenPair, *identity.UserRecord, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

var errPasswordSignInDisabled = apperrors.NewCustomError(apperrors.ErrUnavailable,
	"password sign-in is handled by the identity provider")

// AuthService handles authentication operations
type AuthService struct {
	repos    *repositories.Repositories
	identity identity.Provider
	password PasswordAuthenticator
	mailer   email.EmailService
	tasks    notifier.Enqueuer
	now      Clock
	logger   zerolog.Logger
}

// NewAuthService creates a new AuthService. password may be nil.
func NewAuthService(
	repos *repositories.Repositories,
	provider identity.Provider,
	password PasswordAuthenticator,
	mailer email.EmailService,
	tasks notifier.Enqueuer,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		repos:    repos,
		identity: provider,
		password: password,
		mailer:   mailer,
		tasks:    tasks,
		now:      utcNow,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

func tokenResponse(pair *auth.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(pair.ExpiresIn),
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
	}
}

// Login checks the credentials and returns a token pair with the user record. The
// sign-in is recorded in the background.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest, ip, userAgent string) (*dto.AuthResponse, error) {
	if s.password == nil {
		return nil, errPasswordSignInDisabled
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	pair, record, err := s.password.SignIn(ctx, normalizeEmail(req.Email), req.Password)
	if err != nil {
		s.logger.Info().Str("email", req.Email).Err(err).Msg("Sign-in rejected")
		return nil, err
	}

	user, err := s.repos.Users.GetUserByUID(ctx, record.UID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Identity without records: provisioning never completed
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	s.recordLogin(user.UID, ip, userAgent)
	return &dto.AuthResponse{Token: tokenResponse(pair), User: user}, nil
}

func (s *AuthService) recordLogin(uid, ip, userAgent string) {
	activity := &models.LoginActivity{
		ID:        uuid.NewString(),
		UserUID:   uid,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: s.now(),
	}
	s.tasks.Enqueue("login-activity", func(ctx context.Context) error {
		return s.repos.LoginActivity.Record(ctx, activity)
	})
}

// RefreshToken exchanges a refresh token for a new pair
func (s *AuthService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	if s.password == nil {
		return nil, errPasswordSignInDisabled
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	pair, err := s.password.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	resp := tokenResponse(pair)
	return &resp, nil
}

// ForgotPassword emails a reset link in the background. Unknown addresses are
// accepted silently so the endpoint does not reveal which accounts exist.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	addr := normalizeEmail(req.Email)

	link, err := s.identity.GeneratePasswordResetLink(ctx, addr)
	if errors.Is(err, identity.ErrUserNotFound) {
		s.logger.Info().Str("email", addr).Msg("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to generate reset link: %w", err)
	}

	if s.mailer != nil {
		s.tasks.Enqueue("password-reset-email", func(ctx context.Context) error {
			return s.mailer.SendPasswordResetEmail(ctx, addr, link)
		})
	}
	return nil
}

// ResetPassword sets a new password with a reset token
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	if s.password == nil {
		return errPasswordSignInDisabled
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	return s.password.ResetPassword(ctx, req.Token, req.NewPassword)
}

// LoginActivity returns the latest sign-ins of uid
func (s *AuthService) LoginActivity(ctx context.Context, uid string, limit int) ([]*models.LoginActivity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	activity, err := s.repos.LoginActivity.ListByUser(ctx, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list login activity: %w", err)
	}
	if activity == nil {
		activity = []*models.LoginActivity{}
	}
	return activity, nil
}
