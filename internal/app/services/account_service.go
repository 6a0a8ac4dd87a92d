package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/email"
	"github.com/campusops/erp/internal/pkg/helpers"
	"github.com/campusops/erp/internal/pkg/identifier"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountService provisions, updates and removes accounts. An account spans the
// identity provider and the database, so creation runs as a saga: the identity is
// deleted again when the database write fails.
type AccountService struct {
	tx            repositories.Transactor
	repos         *repositories.Repositories
	counters      *CounterService
	identity      identity.Provider
	notifications *NotificationService
	mailer        email.EmailService
	tasks         notifier.Enqueuer
	fees          FeeDefaults
	now           Clock
	logger        zerolog.Logger
}

// FeeDefaults fill in the ledger of a student registered without fee details
type FeeDefaults struct {
	TotalFees      int64
	DueAfterMonths int
}

// NewAccountService creates a new AccountService
func NewAccountService(
	tx repositories.Transactor,
	repos *repositories.Repositories,
	counters *CounterService,
	provider identity.Provider,
	notifications *NotificationService,
	mailer email.EmailService,
	tasks notifier.Enqueuer,
	logger zerolog.Logger,
) *AccountService {
	return &AccountService{
		tx:            tx,
		repos:         repos,
		counters:      counters,
		identity:      provider,
		notifications: notifications,
		mailer:        mailer,
		tasks:         tasks,
		now:           utcNow,
		logger:        logger.With().Str("service", "accounts").Logger(),
	}
}

// WithFeeDefaults sets the ledger defaults for new students
func (s *AccountService) WithFeeDefaults(d FeeDefaults) *AccountService {
	s.fees = d
	return s
}

// provisioning is what differs between a student and a staff account
type provisioning struct {
	role        models.RoleType
	profileID   string
	name        string
	email       string
	dateOfBirth time.Time
	counterKey  string
	loginID     func(seq int64) string
	persist     func(ctx context.Context, repos *repositories.Repositories, user *models.User) error
}

// ProvisionStudent creates the identity, user record, student profile and fee ledger
// of a new student. The college ID comes from the student counter of the program,
// admission year and branch.
func (s *AccountService) ProvisionStudent(ctx context.Context, req *dto.CreateStudentRequest) (*dto.ProvisionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	dob, err := parseDate("dateOfBirth", req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	var dueDate time.Time
	if req.FeeDueDate != "" {
		if dueDate, err = parseDate("feeDueDate", req.FeeDueDate); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if dueDate.IsZero() && s.fees.DueAfterMonths > 0 {
		dueDate = helpers.AddMonths(now, s.fees.DueAfterMonths)
	}
	totalFees := req.TotalFees
	if totalFees == 0 {
		totalFees = s.fees.TotalFees
	}
	prefix := identifier.ProgramCode(req.Program)
	unit := identifier.BranchCode(req.Branch)
	year := identifier.YearShort(now)
	profileID := uuid.NewString()

	return s.provision(ctx, provisioning{
		role:        models.RoleStudent,
		profileID:   profileID,
		name:        strings.TrimSpace(req.Name),
		email:       normalizeEmail(req.Email),
		dateOfBirth: dob,
		counterKey:  identifier.CounterKey(identifier.KindStudent, prefix+year+unit),
		loginID: func(seq int64) string {
			return identifier.Generate(prefix, year, unit, seq)
		},
		persist: func(ctx context.Context, repos *repositories.Repositories, user *models.User) error {
			if err := repos.Users.CreateUser(ctx, user); err != nil {
				return err
			}
			if err := repos.Users.CreateStudent(ctx, &models.StudentProfile{
				ID:          profileID,
				UserUID:     user.UID,
				CollegeID:   user.CollegeID,
				Name:        user.Name,
				Email:       user.Email,
				Phone:       req.Phone,
				Program:     req.Program,
				Branch:      req.Branch,
				Section:     strings.ToUpper(req.Section),
				Year:        req.Year,
				Semester:    req.Semester,
				DateOfBirth: dob,
				Timestamps:  models.Timestamps{CreatedAt: now, UpdatedAt: now},
			}); err != nil {
				return err
			}
			return repos.Fees.CreateLedger(ctx, &models.FeeLedger{
				StudentID:      profileID,
				TotalFees:      totalFees,
				PaymentHistory: []models.Payment{},
				DueDate:        dueDate,
				Timestamps:     models.Timestamps{CreatedAt: now, UpdatedAt: now},
			})
		},
	})
}

// ProvisionStaff creates the identity, user record and teacher or admin profile of a
// staff member. The staff ID comes from the counter of the role prefix, joining year
// and department.
func (s *AccountService) ProvisionStaff(ctx context.Context, req *dto.CreateStaffRequest) (*dto.ProvisionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	dob, err := parseDate("dateOfBirth", req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	prefix, err := identifier.StaffPrefix(string(req.Role))
	if err != nil {
		return nil, fieldError("role", "role must be one of [teacher admin]")
	}

	now := s.now()
	unit := identifier.DepartmentCode(req.Department)
	year := identifier.YearShort(now)
	profileID := uuid.NewString()

	return s.provision(ctx, provisioning{
		role:        req.Role,
		profileID:   profileID,
		name:        strings.TrimSpace(req.Name),
		email:       normalizeEmail(req.Email),
		dateOfBirth: dob,
		counterKey:  identifier.CounterKey(identifier.KindStaff, prefix+year+unit),
		loginID: func(seq int64) string {
			return identifier.Generate(prefix, year, unit, seq)
		},
		persist: func(ctx context.Context, repos *repositories.Repositories, user *models.User) error {
			if err := repos.Users.CreateUser(ctx, user); err != nil {
				return err
			}
			return repos.Users.CreateStaff(ctx, &models.StaffProfile{
				ID:          profileID,
				UserUID:     user.UID,
				Role:        req.Role,
				StaffID:     user.StaffID,
				Name:        user.Name,
				Email:       user.Email,
				Phone:       req.Phone,
				Department:  req.Department,
				Position:    req.Position,
				DateOfBirth: dob,
				Timestamps:  models.Timestamps{CreatedAt: now, UpdatedAt: now},
			})
		},
	})
}

func (s *AccountService) provision(ctx context.Context, p provisioning) (*dto.ProvisionResponse, error) {
	log := s.logger.With().Str("email", p.email).Str("role", string(p.role)).Logger()

	if _, err := s.identity.GetUserByEmail(ctx, p.email); err == nil {
		return nil, apperrors.ErrAlreadyRegistered
	} else if !errors.Is(err, identity.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up %s: %w", p.email, err)
	}

	password := identifier.InitialPassword(p.name, p.dateOfBirth)

	seq, err := s.counters.NextSequence(ctx, p.counterKey)
	if err != nil {
		return nil, err
	}
	loginID := p.loginID(seq)

	now := s.now()
	saga := &models.ProvisioningSaga{
		ID:         uuid.NewString(),
		AuthUID:    uuid.NewString(),
		Email:      p.email,
		Role:       p.role,
		State:      models.SagaPending,
		Timestamps: models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.repos.Sagas.Create(ctx, saga); err != nil {
		return nil, fmt.Errorf("failed to record provisioning saga: %w", err)
	}

	user := &models.User{
		UID:        saga.AuthUID,
		Name:       p.name,
		Email:      p.email,
		Role:       p.role,
		RoleDocID:  p.profileID,
		Initials:   identifier.Initials(p.name),
		Timestamps: models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if p.role == models.RoleStudent {
		user.CollegeID = loginID
	} else {
		user.StaffID = loginID
	}

	if err := s.createIdentityAndRecords(ctx, p, user, password, saga.ID); err != nil {
		s.compensate(ctx, saga, err, log)
		if apperrors.Is(err, apperrors.ErrEmailAlreadyExists, apperrors.ErrConflict) {
			return nil, apperrors.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrProvisioningFailed, err)
	}

	log.Info().Str("uid", user.UID).Str("loginId", loginID).Msg("Account provisioned")
	s.welcome(user)

	return &dto.ProvisionResponse{
		UID:       user.UID,
		Role:      user.Role,
		ProfileID: user.RoleDocID,
		LoginID:   loginID,
		Email:     user.Email,
	}, nil
}

// createIdentityAndRecords runs the steps that need compensation when they fail
func (s *AccountService) createIdentityAndRecords(ctx context.Context, p provisioning, user *models.User, password, sagaID string) error {
	if _, err := s.identity.CreateUser(ctx, identity.CreateUserParams{
		UID:         user.UID,
		Email:       user.Email,
		Password:    password,
		DisplayName: user.Name,
	}); err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	if err := s.identity.SetCustomUserClaims(ctx, user.UID, models.Claims(user)); err != nil {
		return fmt.Errorf("failed to set role claims: %w", err)
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if err := p.persist(ctx, repos, user); err != nil {
			return err
		}
		return repos.Sagas.UpdateState(ctx, sagaID, models.SagaCompleted, "")
	})
	if err != nil {
		return fmt.Errorf("failed to write account records: %w", err)
	}
	return nil
}

// compensate deletes the identity created for saga. A missing identity counts as
// deleted. When the delete fails the saga stays PENDING for the reconciler.
func (s *AccountService) compensate(ctx context.Context, saga *models.ProvisioningSaga, cause error, log zerolog.Logger) {
	ctx = context.WithoutCancel(ctx)

	err := s.identity.DeleteUser(ctx, saga.AuthUID)
	if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		log.Error().Err(err).AnErr("cause", cause).Str("saga", saga.ID).Msg("Compensation failed, identity left for reconciliation")
		if uerr := s.repos.Sagas.UpdateState(ctx, saga.ID, models.SagaPending, fmt.Sprintf("%v; compensation: %v", cause, err)); uerr != nil {
			log.Error().Err(uerr).Str("saga", saga.ID).Msg("Failed to record saga error")
		}
		return
	}

	log.Warn().Err(cause).Str("saga", saga.ID).Msg("Provisioning compensated")
	if uerr := s.repos.Sagas.UpdateState(ctx, saga.ID, models.SagaCompensated, cause.Error()); uerr != nil {
		log.Error().Err(uerr).Str("saga", saga.ID).Msg("Failed to mark saga compensated")
	}
}

// welcome queues the in-app notification and the welcome email
func (s *AccountService) welcome(user *models.User) {
	uid, name, addr, loginID := user.UID, user.Name, user.Email, user.LoginID()

	if s.notifications != nil {
		s.tasks.Enqueue("welcome-notification", func(ctx context.Context) error {
			_, err := s.notifications.Notify(ctx, uid, "Welcome",
				fmt.Sprintf("Your account is ready. Sign in with %s.", loginID))
			return err
		})
	}
	if s.mailer != nil {
		s.tasks.Enqueue("welcome-email", func(ctx context.Context) error {
			link, err := s.identity.GeneratePasswordResetLink(ctx, addr)
			if err != nil {
				return fmt.Errorf("failed to generate reset link: %w", err)
			}
			return s.mailer.SendWelcomeEmail(ctx, addr, name, loginID, link)
		})
	}
}

// DeleteAccount removes the user record, role profile and fee ledger in one
// transaction, then the identity. Identity removal is best-effort.
func (s *AccountService) DeleteAccount(ctx context.Context, uid string) error {
	if err := s.removeRecords(ctx, uid); err != nil {
		return err
	}
	if err := s.identity.DeleteUser(ctx, uid); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		s.logger.Error().Err(err).Str("uid", uid).Msg("Failed to delete identity of removed account")
	}
	s.logger.Info().Str("uid", uid).Msg("Account deleted")
	return nil
}

func (s *AccountService) removeRecords(ctx context.Context, uid string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		user, err := repos.Users.GetUserByUID(ctx, uid)
		if err != nil {
			return err
		}

		switch user.Role {
		case models.RoleStudent:
			if err := releaseRoom(ctx, repos, user.RoleDocID); err != nil {
				return err
			}
			if err := repos.Fees.DeleteLedger(ctx, user.RoleDocID); err != nil {
				return err
			}
			if err := repos.Users.DeleteStudent(ctx, user.RoleDocID); err != nil && !errors.Is(err, apperrors.ErrStudentNotFound) {
				return err
			}
		default:
			if err := repos.Users.DeleteStaff(ctx, user.Role, user.RoleDocID); err != nil &&
				!apperrors.Is(err, apperrors.ErrTeacherNotFound, apperrors.ErrAdminNotFound) {
				return err
			}
		}
		return repos.Users.DeleteUser(ctx, uid)
	})
}

// releaseRoom takes a student out of their hostel room, if any
func releaseRoom(ctx context.Context, repos *repositories.Repositories, studentID string) error {
	student, err := repos.Users.GetStudentForUpdate(ctx, studentID)
	if errors.Is(err, apperrors.ErrStudentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if student.Hostel == nil {
		return nil
	}
	hostel, err := repos.Hostels.GetByIDForUpdate(ctx, student.Hostel.HostelID)
	if errors.Is(err, apperrors.ErrHostelNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if idx, ok := hostel.RoomIndex(student.Hostel.RoomNumber); ok && hostel.Rooms[idx].RemoveResident(studentID) {
		return repos.Hostels.UpdateRooms(ctx, hostel.ID, hostel.Rooms)
	}
	return nil
}

// UpdateProfile changes the display name and avatar of uid
func (s *AccountService) UpdateProfile(ctx context.Context, uid string, req *dto.UpdateProfileRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user, err := s.repos.Users.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(req.Name)
	user.Initials = identifier.Initials(user.Name)
	user.AvatarURL = req.AvatarURL
	user.UpdatedAt = s.now()
	if err := s.repos.Users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// GetUser returns the user record of uid
func (s *AccountService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return s.repos.Users.GetUserByUID(ctx, uid)
}

// GetProfile returns the role profile of a user
func (s *AccountService) GetProfile(ctx context.Context, user *models.User) (models.RoleProfile, error) {
	if user.Role == models.RoleStudent {
		student, err := s.repos.Users.GetStudent(ctx, user.RoleDocID)
		if err != nil {
			return nil, err
		}
		return student, nil
	}
	staff, err := s.repos.Users.GetStaff(ctx, user.Role, user.RoleDocID)
	if err != nil {
		return nil, err
	}
	return staff, nil
}

// GetStudent returns one student profile
func (s *AccountService) GetStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	return s.repos.Users.GetStudent(ctx, id)
}

// ListStudents returns one page of a cohort
func (s *AccountService) ListStudents(ctx context.Context, filter models.CohortFilter, page, size int) (*dto.StudentListResponse, error) {
	filter.Offset, filter.Limit = helpers.CalculateOffsetLimit(page, size)

	total, err := s.repos.Users.CountStudents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	students, err := s.repos.Users.ListStudents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if students == nil {
		students = []*models.StudentProfile{}
	}
	return &dto.StudentListResponse{
		Students:   students,
		Pagination: helpers.NewPaginationInfo(total, page, filter.Limit),
	}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
