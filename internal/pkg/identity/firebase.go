package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseConfig selects the Firebase project
type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
	// ResetURL is the continue URL embedded in password reset links
	ResetURL string
}

// Firebase is a Provider backed by Firebase Authentication
type Firebase struct {
	client   *fbauth.Client
	resetURL string
}

var _ Provider = (*Firebase)(nil)

// NewFirebase initializes the Firebase Admin SDK
func NewFirebase(ctx context.Context, cfg FirebaseConfig) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}
	return &Firebase{client: client, resetURL: cfg.ResetURL}, nil
}

func fromFirebase(u *fbauth.UserRecord) *UserRecord {
	rec := &UserRecord{Disabled: u.Disabled, CustomClaims: u.CustomClaims}
	if u.UserInfo != nil {
		rec.UID = u.UID
		rec.Email = u.Email
		rec.DisplayName = u.DisplayName
	}
	return rec
}

func wrapNotFound(err error) error {
	if fbauth.IsUserNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

// GetUserByEmail implements Provider
func (f *Firebase) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	u, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return fromFirebase(u), nil
}

// CreateUser implements Provider
func (f *Firebase) CreateUser(ctx context.Context, p CreateUserParams) (*UserRecord, error) {
	params := (&fbauth.UserToCreate{}).
		Email(p.Email).
		Password(p.Password).
		DisplayName(p.DisplayName).
		EmailVerified(false)
	if p.UID != "" {
		params = params.UID(p.UID)
	}

	u, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return nil, err
	}
	return fromFirebase(u), nil
}

// SetCustomUserClaims implements Provider
func (f *Firebase) SetCustomUserClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	return wrapNotFound(f.client.SetCustomUserClaims(ctx, uid, claims))
}

// DeleteUser implements Provider
func (f *Firebase) DeleteUser(ctx context.Context, uid string) error {
	return wrapNotFound(f.client.DeleteUser(ctx, uid))
}

// GeneratePasswordResetLink implements Provider
func (f *Firebase) GeneratePasswordResetLink(ctx context.Context, email string) (string, error) {
	var (
		link string
		err  error
	)
	if f.resetURL != "" {
		link, err = f.client.PasswordResetLinkWithSettings(ctx, email, &fbauth.ActionCodeSettings{URL: f.resetURL})
	} else {
		link, err = f.client.PasswordResetLink(ctx, email)
	}
	return link, wrapNotFound(err)
}

// VerifyIDToken implements Provider
func (f *Firebase) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	email, _ := tok.Claims["email"].(string)
	return &Token{UID: tok.UID, Email: email, Claims: tok.Claims}, nil
}
