package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HostelService manages hostels and room allocation
type HostelService struct {
	tx     repositories.Transactor
	repos  *repositories.Repositories
	now    Clock
	logger zerolog.Logger
}

// NewHostelService creates a new HostelService
func NewHostelService(tx repositories.Transactor, repos *repositories.Repositories, logger zerolog.Logger) *HostelService {
	return &HostelService{
		tx:     tx,
		repos:  repos,
		now:    utcNow,
		logger: logger.With().Str("service", "hostels").Logger(),
	}
}

// CreateHostel creates a hostel with empty rooms
func (s *HostelService) CreateHostel(ctx context.Context, req *dto.CreateHostelRequest) (*models.Hostel, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.Rooms))
	rooms := make([]models.Room, 0, len(req.Rooms))
	for _, r := range req.Rooms {
		number := strings.TrimSpace(r.Number)
		if seen[number] {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDuplicateRoomNumber, number)
		}
		seen[number] = true
		rooms = append(rooms, models.Room{Number: number, Capacity: r.Capacity, Residents: []models.Resident{}})
	}

	now := s.now()
	hostel := &models.Hostel{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Type:       req.Type,
		Rooms:      rooms,
		Timestamps: models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.repos.Hostels.Create(ctx, hostel); err != nil {
		return nil, fmt.Errorf("failed to create hostel: %w", err)
	}
	return hostel, nil
}

// GetHostel returns a hostel with its rooms and residents
func (s *HostelService) GetHostel(ctx context.Context, id string) (*models.Hostel, error) {
	return s.repos.Hostels.GetByID(ctx, id)
}

// ListHostels returns every hostel
func (s *HostelService) ListHostels(ctx context.Context) ([]*models.Hostel, error) {
	hostels, err := s.repos.Hostels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list hostels: %w", err)
	}
	if hostels == nil {
		hostels = []*models.Hostel{}
	}
	return hostels, nil
}

// AllocateRoom places a student in a room. The room must exist and have a free bed,
// and the student must not live anywhere yet. The hostel and the student are written
// together or not at all.
func (s *HostelService) AllocateRoom(ctx context.Context, hostelID, roomNumber, studentID string) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		hostel, err := repos.Hostels.GetByIDForUpdate(ctx, hostelID)
		if err != nil {
			return err
		}
		idx, ok := hostel.RoomIndex(roomNumber)
		if !ok {
			return apperrors.ErrRoomNotFound
		}
		room := &hostel.Rooms[idx]
		if room.IsFull() {
			return apperrors.ErrRoomFull
		}

		student, err := repos.Users.GetStudentForUpdate(ctx, studentID)
		if err != nil {
			return err
		}
		if student.Hostel != nil {
			return apperrors.ErrAlreadyAllocated
		}
		if _, ok := hostel.ResidentRoom(studentID); ok {
			return apperrors.ErrAlreadyAllocated
		}

		room.Residents = append(room.Residents, models.Resident{StudentID: student.ID, StudentName: student.Name})
		if err := repos.Hostels.UpdateRooms(ctx, hostel.ID, hostel.Rooms); err != nil {
			return err
		}
		return repos.Users.UpdateStudentHostel(ctx, student.ID, &models.HostelAssignment{
			HostelID:   hostel.ID,
			RoomNumber: room.Number,
			HostelType: hostel.Type,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("hostel", hostelID).Str("room", roomNumber).Str("student", studentID).Msg("Room allocated")
	return nil
}

// DeallocateRoom takes a student out of a room. A student assigned to another hostel
// is rejected. A student missing from the room is only logged, and the student's
// hostel fields are cleared either way.
func (s *HostelService) DeallocateRoom(ctx context.Context, hostelID, roomNumber, studentID string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		hostel, err := repos.Hostels.GetByIDForUpdate(ctx, hostelID)
		if err != nil {
			return err
		}
		idx, ok := hostel.RoomIndex(roomNumber)
		if !ok {
			return apperrors.ErrRoomNotFound
		}

		student, err := repos.Users.GetStudentForUpdate(ctx, studentID)
		if err != nil {
			return err
		}
		if student.Hostel != nil && student.Hostel.HostelID != hostel.ID {
			return apperrors.ErrNotAllocated
		}

		if hostel.Rooms[idx].RemoveResident(studentID) {
			if err := repos.Hostels.UpdateRooms(ctx, hostel.ID, hostel.Rooms); err != nil {
				return err
			}
		} else {
			s.logger.Warn().Str("hostel", hostelID).Str("room", roomNumber).Str("student", studentID).
				Msg("Student not found among room residents, clearing assignment anyway")
		}
		return repos.Users.UpdateStudentHostel(ctx, studentID, nil)
	})
}
