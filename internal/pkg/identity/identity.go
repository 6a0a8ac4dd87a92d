// Package identity abstracts the authentication provider that owns login credentials.
// Accounts are created, claimed and deleted through a Provider; the ERP database only
// references them by UID.
package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no account matches. Provisioning treats it as
// "email available" and compensation treats it as already deleted.
var ErrUserNotFound = errors.New("identity: user not found")

// UserRecord is an account as seen by the provider
type UserRecord struct {
	UID          string
	Email        string
	DisplayName  string
	Disabled     bool
	CustomClaims map[string]interface{}
}

// CreateUserParams describes a new account. UID is chosen by the caller so a
// provisioning saga can be recorded before the account exists.
type CreateUserParams struct {
	UID         string
	Email       string
	Password    string
	DisplayName string
}

// Token is a verified ID token
type Token struct {
	UID    string
	Email  string
	Claims map[string]interface{}
}

// Provider is the set of authentication operations the ERP relies on
type Provider interface {
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, claims map[string]interface{}) error
	DeleteUser(ctx context.Context, uid string) error
	GeneratePasswordResetLink(ctx context.Context, email string) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
}

// TokenVerifier checks ID tokens presented on requests
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
}

// ClaimString reads a string claim
func (t *Token) ClaimString(key string) string {
	if t == nil || t.Claims == nil {
		return ""
	}
	s, _ := t.Claims[key].(string)
	return s
}
