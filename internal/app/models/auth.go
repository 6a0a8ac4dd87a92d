package models

import "time"

// Credential is an account of the local identity provider
type Credential struct {
	UID          string                 `json:"uid" db:"uid"`
	Email        string                 `json:"email" db:"email"`
	DisplayName  string                 `json:"displayName" db:"display_name"`
	PasswordHash string                 `json:"-" db:"password_hash"`
	Claims       map[string]interface{} `json:"claims" db:"claims"`
	Disabled     bool                   `json:"disabled" db:"disabled"`
	CreatedAt    time.Time              `json:"createdAt" db:"created_at"`
}

// TokenKind distinguishes refresh tokens from password reset tokens
type TokenKind string

const (
	TokenKindRefresh       TokenKind = "refresh"
	TokenKindPasswordReset TokenKind = "password_reset"
)

// AuthToken is an opaque single-use or long-lived token
type AuthToken struct {
	Token     string    `json:"-" db:"token"`
	UID       string    `json:"uid" db:"uid"`
	Kind      TokenKind `json:"kind" db:"kind"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Usable reports whether the token can still be redeemed
func (t *AuthToken) Usable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
