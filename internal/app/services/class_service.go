package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClassService manages class rosters
type ClassService struct {
	tx     repositories.Transactor
	repos  *repositories.Repositories
	tasks  notifier.Enqueuer
	now    Clock
	logger zerolog.Logger
}

// NewClassService creates a new ClassService
func NewClassService(tx repositories.Transactor, repos *repositories.Repositories, tasks notifier.Enqueuer, logger zerolog.Logger) *ClassService {
	return &ClassService{
		tx:     tx,
		repos:  repos,
		tasks:  tasks,
		now:    utcNow,
		logger: logger.With().Str("service", "classes").Logger(),
	}
}

// CreateClass creates a class and snapshots the students of its cohort section into
// the roster. Students who join the section later are not added. The class chat
// room is created in the background.
func (s *ClassService) CreateClass(ctx context.Context, req *dto.CreateClassRequest) (*models.Class, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	class := &models.Class{
		ID:         uuid.NewString(),
		Program:    req.Program,
		Branch:     req.Branch,
		Section:    strings.ToUpper(req.Section),
		Year:       req.Year,
		Semester:   req.Semester,
		CourseID:   req.CourseID,
		TeacherID:  req.TeacherID,
		Timestamps: models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}

	var (
		course  *models.Course
		teacher *models.StaffProfile
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		if course, err = repos.Courses.GetByID(ctx, req.CourseID); err != nil {
			return err
		}
		if teacher, err = repos.Users.GetStaff(ctx, models.RoleTeacher, req.TeacherID); err != nil {
			return err
		}

		if _, err := repos.Classes.FindSameSlot(ctx, class); err == nil {
			return apperrors.ErrClassAlreadyExists
		} else if !errors.Is(err, apperrors.ErrClassNotFound) {
			return err
		}

		students, err := repos.Users.ListStudents(ctx, models.CohortFilter{
			Program: class.Program,
			Branch:  class.Branch,
			Year:    class.Year,
			Section: class.Section,
		})
		if err != nil {
			return err
		}
		class.StudentUIDs = make([]string, 0, len(students))
		for _, st := range students {
			class.StudentUIDs = append(class.StudentUIDs, st.UserUID)
		}

		return repos.Classes.Create(ctx, class)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("class", class.ID).Int("students", len(class.StudentUIDs)).Msg("Class created")
	s.queueChatRoom(class, course, teacher)
	return class, nil
}

func (s *ClassService) queueChatRoom(class *models.Class, course *models.Course, teacher *models.StaffProfile) {
	room := &models.ChatRoom{
		ID:         uuid.NewString(),
		ClassID:    class.ID,
		Name:       fmt.Sprintf("%s %s Y%d-%s", course.Code, branchAbbrev(class.Branch), class.Year, class.Section),
		MemberUIDs: append([]string{teacher.UserUID}, class.StudentUIDs...),
		CreatedAt:  s.now(),
	}
	s.tasks.Enqueue("class-chat-room", func(ctx context.Context) error {
		err := s.repos.Chats.CreateRoom(ctx, room)
		if apperrors.Is(err, apperrors.ErrConflict, apperrors.ErrResourceAlreadyExists) {
			// Already created by an earlier attempt
			return nil
		}
		return err
	})
}

// branchAbbrev shortens a branch name for room titles
func branchAbbrev(branch string) string {
	words := strings.Fields(branch)
	if len(words) < 2 {
		return branch
	}
	var b strings.Builder
	for _, w := range words {
		if strings.EqualFold(w, "and") || strings.EqualFold(w, "of") {
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}

// GetClass returns one class
func (s *ClassService) GetClass(ctx context.Context, id string) (*models.Class, error) {
	return s.repos.Classes.GetByID(ctx, id)
}

// ListClasses returns the classes of a teacher, or every class for an empty teacherID
func (s *ClassService) ListClasses(ctx context.Context, teacherID string) ([]*models.Class, error) {
	classes, err := s.repos.Classes.List(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	if classes == nil {
		classes = []*models.Class{}
	}
	return classes, nil
}

// GetChatRoom returns the chat room of a class
func (s *ClassService) GetChatRoom(ctx context.Context, classID string) (*models.ChatRoom, error) {
	return s.repos.Chats.GetByClassID(ctx, classID)
}

// TransferStudent moves a student from one class roster to another. The student must
// be on the source roster and not on the target; both rosters change together.
func (s *ClassService) TransferStudent(ctx context.Context, req *dto.TransferStudentRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		from, err := repos.Classes.GetByIDForUpdate(ctx, req.FromClassID)
		if err != nil {
			return err
		}
		to, err := repos.Classes.GetByIDForUpdate(ctx, req.ToClassID)
		if err != nil {
			return err
		}

		if !from.HasStudent(req.StudentUID) {
			return apperrors.ErrNotInClass
		}
		if to.HasStudent(req.StudentUID) {
			return apperrors.NewConflictError("student is already a member of the target class")
		}

		from.RemoveStudent(req.StudentUID)
		to.StudentUIDs = append(to.StudentUIDs, req.StudentUID)

		if err := repos.Classes.UpdateRoster(ctx, from.ID, from.StudentUIDs); err != nil {
			return err
		}
		return repos.Classes.UpdateRoster(ctx, to.ID, to.StudentUIDs)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("student", req.StudentUID).Str("from", req.FromClassID).Str("to", req.ToClassID).Msg("Student transferred")
	return nil
}
