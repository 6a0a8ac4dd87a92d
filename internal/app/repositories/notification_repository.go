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
	"github.com/jackc/pgx/v5"
)

// PgNotificationRepository handles in-app notifications
type PgNotificationRepository struct {
	db db.DBTX
}

// NewNotificationRepository creates a new PgNotificationRepository
func NewNotificationRepository(conn db.DBTX) *PgNotificationRepository {
	return &PgNotificationRepository{db: conn}
}

// Create inserts a notification
func (r *PgNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	sql, args, err := psql.Insert("notifications").
		Columns("id", "user_uid", "title", "body", "read", "created_at").
		Values(n.ID, n.UserUID, n.Title, n.Body, n.Read, n.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create notification query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

// ListByUser returns the newest notifications of a user
func (r *PgNotificationRepository) ListByUser(ctx context.Context, uid string, limit int) ([]*models.Notification, error) {
	sql, args, err := psql.Select("id", "user_uid", "title", "body", "read", "created_at").
		From("notifications").
		Where(squirrel.Eq{"user_uid": uid}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserUID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkRead flags a notification owned by uid as read
func (r *PgNotificationRepository) MarkRead(ctx context.Context, uid, id string) error {
	sql, args, err := psql.Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"id": id, "user_uid": uid}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark read query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

// PgChatRepository handles class chat rooms
type PgChatRepository struct {
	db db.DBTX
}

// NewChatRepository creates a new PgChatRepository
func NewChatRepository(conn db.DBTX) *PgChatRepository {
	return &PgChatRepository{db: conn}
}

// CreateRoom inserts a chat room; a second room for the same class is a conflict
func (r *PgChatRepository) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	members := room.MemberUIDs
	if members == nil {
		members = []string{}
	}
	sql, args, err := psql.Insert("chats").
		Columns("id", "class_id", "name", "member_uids", "created_at").
		Values(room.ID, room.ClassID, room.Name, members, room.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create chat room query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError("chat room already exists for class")
		}
		return fmt.Errorf("error creating chat room: %w", err)
	}
	return nil
}

// GetByClassID retrieves the chat room of a class
func (r *PgChatRepository) GetByClassID(ctx context.Context, classID string) (*models.ChatRoom, error) {
	sql, args, err := psql.Select("id", "class_id", "name", "member_uids", "created_at").
		From("chats").Where(squirrel.Eq{"class_id": classID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get chat room query: %w", err)
	}

	var room models.ChatRoom
	err = r.db.QueryRow(ctx, sql, args...).Scan(&room.ID, &room.ClassID, &room.Name, &room.MemberUIDs, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewResourceNotFoundError("chat room not found")
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving chat room: %w", err)
	}
	return &room, nil
}

// PgLoginActivityRepository records sign-ins
type PgLoginActivityRepository struct {
	db db.DBTX
}

// NewLoginActivityRepository creates a new PgLoginActivityRepository
func NewLoginActivityRepository(conn db.DBTX) *PgLoginActivityRepository {
	return &PgLoginActivityRepository{db: conn}
}

// Record inserts a login activity
func (r *PgLoginActivityRepository) Record(ctx context.Context, a *models.LoginActivity) error {
	sql, args, err := psql.Insert("login_activities").
		Columns("id", "user_uid", "ip", "user_agent", "created_at").
		Values(a.ID, a.UserUID, a.IP, a.UserAgent, a.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build record login query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error recording login activity: %w", err)
	}
	return nil
}

// ListByUser returns the newest sign-ins of a user
func (r *PgLoginActivityRepository) ListByUser(ctx context.Context, uid string, limit int) ([]*models.LoginActivity, error) {
	sql, args, err := psql.Select("id", "user_uid", "ip", "user_agent", "created_at").
		From("login_activities").
		Where(squirrel.Eq{"user_uid": uid}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list login activity query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing login activity: %w", err)
	}
	defer rows.Close()

	var list []*models.LoginActivity
	for rows.Next() {
		var a models.LoginActivity
		if err := rows.Scan(&a.ID, &a.UserUID, &a.IP, &a.UserAgent, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
