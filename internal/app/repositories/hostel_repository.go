package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
)

var hostelColumns = []string{"id", "name", "type", "rooms", "created_at", "updated_at"}

// PgHostelRepository stores hostels with rooms embedded as JSONB
type PgHostelRepository struct {
	db db.DBTX
}

// NewHostelRepository creates a new PgHostelRepository
func NewHostelRepository(conn db.DBTX) *PgHostelRepository {
	return &PgHostelRepository{db: conn}
}

func marshalRooms(rooms []models.Room) ([]byte, error) {
	for i := range rooms {
		if rooms[i].Residents == nil {
			rooms[i].Residents = []models.Resident{}
		}
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return json.Marshal(rooms)
}

func scanHostel(row rowScanner) (*models.Hostel, error) {
	var (
		h     models.Hostel
		rooms []byte
	)
	if err := row.Scan(&h.ID, &h.Name, &h.Type, &rooms, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rooms, &h.Rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return &h, nil
}

// Create inserts a hostel
func (r *PgHostelRepository) Create(ctx context.Context, h *models.Hostel) error {
	rooms, err := marshalRooms(h.Rooms)
	if err != nil {
		return fmt.Errorf("failed to encode rooms: %w", err)
	}

	sql, args, err := psql.Insert("hostels").
		Columns(hostelColumns...).
		Values(h.ID, h.Name, h.Type, rooms, h.CreatedAt, h.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create hostel query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error creating hostel: %w", err)
	}
	return nil
}

func (r *PgHostelRepository) get(ctx context.Context, id string, forUpdate bool) (*models.Hostel, error) {
	q := psql.Select(hostelColumns...).From("hostels").Where(squirrel.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get hostel query: %w", err)
	}

	h, err := scanHostel(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrHostelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving hostel: %w", err)
	}
	return h, nil
}

// GetByID retrieves a hostel
func (r *PgHostelRepository) GetByID(ctx context.Context, id string) (*models.Hostel, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves and locks a hostel row
func (r *PgHostelRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Hostel, error) {
	return r.get(ctx, id, true)
}

// List returns every hostel ordered by name
func (r *PgHostelRepository) List(ctx context.Context) ([]*models.Hostel, error) {
	sql, args, err := psql.Select(hostelColumns...).From("hostels").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list hostels query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing hostels: %w", err)
	}
	defer rows.Close()

	var hostels []*models.Hostel
	for rows.Next() {
		h, err := scanHostel(rows)
		if err != nil {
			return nil, err
		}
		hostels = append(hostels, h)
	}
	return hostels, rows.Err()
}

// UpdateRooms replaces the embedded rooms of a hostel
func (r *PgHostelRepository) UpdateRooms(ctx context.Context, hostelID string, rooms []models.Room) error {
	encoded, err := marshalRooms(rooms)
	if err != nil {
		return fmt.Errorf("failed to encode rooms: %w", err)
	}

	sql, args, err := psql.Update("hostels").
		Set("rooms", encoded).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": hostelID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update rooms query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating rooms: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrHostelNotFound
	}
	return nil
}
