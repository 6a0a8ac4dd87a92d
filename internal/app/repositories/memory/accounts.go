package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/pkg/apperrors"
)

type notificationRepo struct{ *store }

func (r *notificationRepo) Create(_ context.Context, n *models.Notification) error {
	return r.update("Notifications.Create", func(t *tables) error {
		t.notifications[n.ID] = copyOf(n)
		return nil
	})
}

func (r *notificationRepo) ListByUser(_ context.Context, uid string, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	err := r.view(func(t *tables) error {
		for _, n := range t.notifications {
			if n.UserUID == uid {
				out = append(out, copyOf(n))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, 0, limit), err
}

func (r *notificationRepo) MarkRead(_ context.Context, uid, id string) error {
	return r.update("Notifications.MarkRead", func(t *tables) error {
		n, ok := t.notifications[id]
		if !ok || n.UserUID != uid {
			return apperrors.ErrNotificationNotFound
		}
		n.Read = true
		return nil
	})
}

type chatRepo struct{ *store }

func (r *chatRepo) CreateRoom(_ context.Context, room *models.ChatRoom) error {
	return r.update("Chats.CreateRoom", func(t *tables) error {
		for _, existing := range t.chats {
			if existing.ClassID == room.ClassID {
				return apperrors.NewConflictError("chat room already exists for class")
			}
		}
		t.chats[room.ID] = cloneChat(room)
		return nil
	})
}

func (r *chatRepo) GetByClassID(_ context.Context, classID string) (*models.ChatRoom, error) {
	var out *models.ChatRoom
	err := r.view(func(t *tables) error {
		for _, room := range t.chats {
			if room.ClassID == classID {
				out = cloneChat(room)
				return nil
			}
		}
		return apperrors.NewResourceNotFoundError("chat room not found")
	})
	return out, err
}

type loginActivityRepo struct{ *store }

func (r *loginActivityRepo) Record(_ context.Context, a *models.LoginActivity) error {
	return r.update("LoginActivity.Record", func(t *tables) error {
		t.logins = append(t.logins, copyOf(a))
		return nil
	})
}

func (r *loginActivityRepo) ListByUser(_ context.Context, uid string, limit int) ([]*models.LoginActivity, error) {
	var out []*models.LoginActivity
	err := r.view(func(t *tables) error {
		for i := len(t.logins) - 1; i >= 0; i-- {
			if t.logins[i].UserUID == uid {
				out = append(out, copyOf(t.logins[i]))
			}
		}
		return nil
	})
	return paginate(out, 0, limit), err
}

type sagaRepo struct{ *store }

func (r *sagaRepo) Create(_ context.Context, s *models.ProvisioningSaga) error {
	return r.update("Sagas.Create", func(t *tables) error {
		t.sagas[s.ID] = copyOf(s)
		return nil
	})
}

func (r *sagaRepo) Get(_ context.Context, id string) (*models.ProvisioningSaga, error) {
	var out *models.ProvisioningSaga
	err := r.view(func(t *tables) error {
		s, ok := t.sagas[id]
		if !ok {
			return apperrors.ErrSagaNotFound
		}
		out = copyOf(s)
		return nil
	})
	return out, err
}

func (r *sagaRepo) UpdateState(_ context.Context, id string, state models.SagaState, lastError string) error {
	return r.update("Sagas.UpdateState", func(t *tables) error {
		s, ok := t.sagas[id]
		if !ok {
			return apperrors.ErrSagaNotFound
		}
		s.State = state
		s.LastError = lastError
		s.Attempts++
		s.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *sagaRepo) ListPending(_ context.Context, olderThan time.Time, limit int) ([]*models.ProvisioningSaga, error) {
	var out []*models.ProvisioningSaga
	err := r.view(func(t *tables) error {
		for _, s := range t.sagas {
			if s.State == models.SagaPending && s.UpdatedAt.Before(olderThan) {
				out = append(out, copyOf(s))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return paginate(out, 0, limit), err
}

type credentialRepo struct{ *store }

func (r *credentialRepo) Create(_ context.Context, c *models.Credential) error {
	return r.update("Credentials.Create", func(t *tables) error {
		for _, existing := range t.credentials {
			if strings.EqualFold(existing.Email, c.Email) {
				return apperrors.ErrEmailAlreadyExists
			}
		}
		if _, ok := t.credentials[c.UID]; ok {
			return apperrors.NewConflictError("credential already exists")
		}
		t.credentials[c.UID] = cloneCredential(c)
		return nil
	})
}

func (r *credentialRepo) GetByUID(_ context.Context, uid string) (*models.Credential, error) {
	var out *models.Credential
	err := r.view(func(t *tables) error {
		c, ok := t.credentials[uid]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		out = cloneCredential(c)
		return nil
	})
	return out, err
}

func (r *credentialRepo) GetByEmail(_ context.Context, email string) (*models.Credential, error) {
	var out *models.Credential
	err := r.view(func(t *tables) error {
		for _, c := range t.credentials {
			if strings.EqualFold(c.Email, email) {
				out = cloneCredential(c)
				return nil
			}
		}
		return apperrors.ErrUserNotFound
	})
	return out, err
}

func (r *credentialRepo) SetClaims(_ context.Context, uid string, claims map[string]interface{}) error {
	return r.update("Credentials.SetClaims", func(t *tables) error {
		c, ok := t.credentials[uid]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		c.Claims = cloneCredential(&models.Credential{Claims: claims}).Claims
		return nil
	})
}

func (r *credentialRepo) UpdatePassword(_ context.Context, uid, passwordHash string) error {
	return r.update("Credentials.UpdatePassword", func(t *tables) error {
		c, ok := t.credentials[uid]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		c.PasswordHash = passwordHash
		return nil
	})
}

func (r *credentialRepo) Delete(_ context.Context, uid string) error {
	return r.update("Credentials.Delete", func(t *tables) error {
		if _, ok := t.credentials[uid]; !ok {
			return apperrors.ErrUserNotFound
		}
		delete(t.credentials, uid)
		return nil
	})
}

type tokenRepo struct{ *store }

func (r *tokenRepo) Create(_ context.Context, tok *models.AuthToken) error {
	return r.update("Tokens.Create", func(t *tables) error {
		if _, ok := t.tokens[tok.Token]; ok {
			return apperrors.ErrTokenInvalid
		}
		t.tokens[tok.Token] = copyOf(tok)
		return nil
	})
}

func (r *tokenRepo) Get(_ context.Context, token string, kind models.TokenKind) (*models.AuthToken, error) {
	var out *models.AuthToken
	err := r.view(func(t *tables) error {
		tok, ok := t.tokens[token]
		if !ok || tok.Kind != kind {
			return apperrors.ErrTokenNotFound
		}
		out = copyOf(tok)
		return nil
	})
	return out, err
}

func (r *tokenRepo) MarkUsed(_ context.Context, token string) error {
	return r.update("Tokens.MarkUsed", func(t *tables) error {
		tok, ok := t.tokens[token]
		if !ok {
			return apperrors.ErrTokenNotFound
		}
		tok.Used = true
		return nil
	})
}

func (r *tokenRepo) DeleteByUser(_ context.Context, uid string) error {
	return r.update("Tokens.DeleteByUser", func(t *tables) error {
		for k, tok := range t.tokens {
			if tok.UID == uid {
				delete(t.tokens, k)
			}
		}
		return nil
	})
}
