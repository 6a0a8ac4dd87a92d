package services

import (
	"context"
	"net/url"
	"testing"

	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.mustStudent(t, "Anita Sharma", "anita@college.edu")

	resp, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "Anita@College.edu", Password: "anit@14082006"}, "10.0.0.1", "curl/8")
	require.NoError(t, err)
	assert.Equal(t, student.UserUID, resp.User.UID)
	assert.Equal(t, "Bearer", resp.Token.TokenType)
	assert.NotEmpty(t, resp.Token.AccessToken)
	assert.Equal(t, int64(60), resp.Token.ExpiresIn)

	token, err := env.provider.VerifyIDToken(ctx, resp.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, student.UserUID, token.UID)
	assert.Equal(t, "student", token.Claims["role"])

	activity, err := env.auth.LoginActivity(ctx, student.UserUID, 0)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "10.0.0.1", activity[0].IP)

	refreshed, err := env.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.Token.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.Token.RefreshToken, refreshed.RefreshToken)

	// Refresh tokens are single use
	_, err = env.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.Token.RefreshToken})
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
	_, err = env.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: "bogus"})
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustStudent(t, "Anita Sharma", "anita@college.edu")

	_, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "anita@college.edu", Password: "wrong"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "nobody@college.edu", Password: "x"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "not-an-email", Password: "x"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Zero(t, env.tasks.ran("login-activity"))
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustStudent(t, "Anita Sharma", "anita@college.edu")

	require.NoError(t, env.auth.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "nobody@college.edu"}))
	assert.Zero(t, env.tasks.ran("password-reset-email"))

	require.NoError(t, env.auth.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "anita@college.edu"}))
	require.Len(t, env.mailer.sent, 2)
	reset := env.mailer.sent[1]
	assert.Equal(t, "reset", reset.kind)
	assert.Equal(t, "anita@college.edu", reset.to)

	link, err := url.Parse(reset.link)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	req := &dto.ResetPasswordRequest{Token: token, NewPassword: "a-much-better-password"}
	require.NoError(t, env.auth.ResetPassword(ctx, req))
	assert.ErrorIs(t, env.auth.ResetPassword(ctx, req), apperrors.ErrPasswordResetTokenUsed)
	assert.ErrorIs(t, env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: "bogus", NewPassword: "whatever-123"}),
		apperrors.ErrInvalidPasswordResetToken)

	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "anita@college.edu", Password: "anit@14082006"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "anita@college.edu", Password: "a-much-better-password"}, "", "")
	assert.NoError(t, err)
}

func TestPasswordFlowsNeedAuthenticator(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repos, env.provider, nil, env.mailer, env.tasks, zerolog.Nop())

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@college.edu", Password: "x"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	_, err = svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: "x"})
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
