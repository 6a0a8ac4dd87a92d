package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/dberrors"
	"github.com/campusops/erp/internal/pkg/helpers"
	"github.com/campusops/erp/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

var (
	userColumns    = []string{"uid", "name", "email", "role", "role_doc_id", "college_id", "staff_id", "initials", "avatar_url", "created_at", "updated_at"}
	studentColumns = []string{"id", "user_uid", "college_id", "name", "email", "phone", "program", "branch", "section", "year", "semester", "date_of_birth", "hostel_id", "room_number", "hostel_type", "created_at", "updated_at"}
	staffColumns   = []string{"id", "user_uid", "staff_id", "name", "email", "phone", "department", "position", "date_of_birth", "created_at", "updated_at"}
)

// PgUserRepository handles identities and role profiles
type PgUserRepository struct {
	db db.DBTX
}

// NewUserRepository creates a new PgUserRepository
func NewUserRepository(conn db.DBTX) *PgUserRepository {
	return &PgUserRepository{db: conn}
}

func staffTable(role models.RoleType) (string, error) {
	switch role {
	case models.RoleTeacher:
		return "teachers", nil
	case models.RoleAdmin:
		return "admins", nil
	default:
		return "", fmt.Errorf("role %q has no staff table", role)
	}
}

// CreateUser inserts an identity
func (r *PgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	sql, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(user.UID, user.Name, user.Email, user.Role, user.RoleDocID,
			helpers.GetContentNullString(user.CollegeID), helpers.GetContentNullString(user.StaffID),
			user.Initials, helpers.GetContentNullString(user.AvatarURL), user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                             models.User
		collegeID, staffID, avatarURL sql.NullString
	)
	err := row.Scan(&u.UID, &u.Name, &u.Email, &u.Role, &u.RoleDocID, &collegeID, &staffID,
		&u.Initials, &avatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.CollegeID = collegeID.String
	u.StaffID = staffID.String
	u.AvatarURL = avatarURL.String
	return &u, nil
}

func (r *PgUserRepository) getUser(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// GetUserByUID retrieves an identity by UID
func (r *PgUserRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	return r.getUser(ctx, squirrel.Eq{"uid": uid})
}

// GetUserByEmail retrieves an identity by email
func (r *PgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, squirrel.Eq{"email": email})
}

// UpdateUser writes the mutable identity fields
func (r *PgUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	sql, args, err := psql.Update("users").
		Set("name", user.Name).
		Set("initials", user.Initials).
		Set("avatar_url", helpers.GetContentNullString(user.AvatarURL)).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"uid": user.UID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update user query: %w", err)
	}
	return r.execAffecting(ctx, sql, args, apperrors.ErrUserNotFound)
}

// DeleteUser removes an identity
func (r *PgUserRepository) DeleteUser(ctx context.Context, uid string) error {
	sql, args, err := psql.Delete("users").Where(squirrel.Eq{"uid": uid}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete user query: %w", err)
	}
	return r.execAffecting(ctx, sql, args, apperrors.ErrUserNotFound)
}

func (r *PgUserRepository) execAffecting(ctx context.Context, sql string, args []interface{}, notFound error) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing statement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// CreateStudent inserts a student profile
func (r *PgUserRepository) CreateStudent(ctx context.Context, s *models.StudentProfile) error {
	var hostelID, roomNumber, hostelType string
	if s.Hostel != nil {
		hostelID, roomNumber, hostelType = s.Hostel.HostelID, s.Hostel.RoomNumber, s.Hostel.HostelType
	}

	sql, args, err := psql.Insert("students").
		Columns(studentColumns...).
		Values(s.ID, s.UserUID, s.CollegeID, s.Name, s.Email, s.Phone, s.Program, s.Branch, s.Section,
			s.Year, s.Semester, s.DateOfBirth,
			helpers.GetContentNullString(hostelID), helpers.GetContentNullString(roomNumber), helpers.GetContentNullString(hostelType),
			s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("student %s already exists", s.CollegeID))
		}
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func scanStudent(row rowScanner) (*models.StudentProfile, error) {
	var (
		s                                models.StudentProfile
		hostelID, roomNumber, hostelType sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserUID, &s.CollegeID, &s.Name, &s.Email, &s.Phone, &s.Program, &s.Branch,
		&s.Section, &s.Year, &s.Semester, &s.DateOfBirth, &hostelID, &roomNumber, &hostelType,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if hostelID.Valid {
		s.Hostel = &models.HostelAssignment{
			HostelID:   hostelID.String,
			RoomNumber: roomNumber.String,
			HostelType: hostelType.String,
		}
	}
	return &s, nil
}

func (r *PgUserRepository) getStudent(ctx context.Context, where squirrel.Sqlizer, forUpdate bool) (*models.StudentProfile, error) {
	q := psql.Select(studentColumns...).From("students").Where(where).Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	s, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// GetStudent retrieves a student profile by ID
func (r *PgUserRepository) GetStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	return r.getStudent(ctx, squirrel.Eq{"id": id}, false)
}

// GetStudentForUpdate retrieves and locks a student profile
func (r *PgUserRepository) GetStudentForUpdate(ctx context.Context, id string) (*models.StudentProfile, error) {
	return r.getStudent(ctx, squirrel.Eq{"id": id}, true)
}

// GetStudentByUserUID retrieves the profile owned by an identity
func (r *PgUserRepository) GetStudentByUserUID(ctx context.Context, uid string) (*models.StudentProfile, error) {
	return r.getStudent(ctx, squirrel.Eq{"user_uid": uid}, false)
}

func (r *PgUserRepository) queryStudents(ctx context.Context, q squirrel.SelectBuilder) ([]*models.StudentProfile, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	var students []*models.StudentProfile
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// GetStudentsByIDs loads the profiles for ids, chunking the IN filter. Unknown IDs are skipped.
func (r *PgUserRepository) GetStudentsByIDs(ctx context.Context, ids []string) ([]*models.StudentProfile, error) {
	var all []*models.StudentProfile
	for _, chunk := range helpers.ChunkStrings(ids, 500) {
		students, err := r.queryStudents(ctx, psql.Select(studentColumns...).From("students").Where(squirrel.Eq{"id": chunk}))
		if err != nil {
			return nil, err
		}
		all = append(all, students...)
	}
	return all, nil
}

func cohortWhere(f models.CohortFilter) squirrel.Eq {
	eq := squirrel.Eq{}
	if f.Program != "" {
		eq["program"] = f.Program
	}
	if f.Branch != "" {
		eq["branch"] = f.Branch
	}
	if f.Year != 0 {
		eq["year"] = f.Year
	}
	if f.Section != "" {
		eq["section"] = f.Section
	}
	if f.Semester != 0 {
		eq["semester"] = f.Semester
	}
	return eq
}

// ListStudents lists students matching the cohort filter ordered by college ID
func (r *PgUserRepository) ListStudents(ctx context.Context, f models.CohortFilter) ([]*models.StudentProfile, error) {
	q := psql.Select(studentColumns...).From("students").Where(cohortWhere(f)).OrderBy("college_id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	return r.queryStudents(ctx, q)
}

// CountStudents counts students matching the cohort filter, ignoring Limit and Offset
func (r *PgUserRepository) CountStudents(ctx context.Context, f models.CohortFilter) (int64, error) {
	sql, args, err := psql.Select("COUNT(*)").From("students").Where(cohortWhere(f)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count students query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return total, nil
}

// UpdateStudentHostel sets or, with a nil assignment, clears the hostel fields
func (r *PgUserRepository) UpdateStudentHostel(ctx context.Context, studentID string, a *models.HostelAssignment) error {
	q := psql.Update("students").Set("updated_at", time.Now().UTC()).Where(squirrel.Eq{"id": studentID})
	if a == nil {
		q = q.Set("hostel_id", nil).Set("room_number", nil).Set("hostel_type", nil)
	} else {
		q = q.Set("hostel_id", a.HostelID).Set("room_number", a.RoomNumber).Set("hostel_type", a.HostelType)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student hostel query: %w", err)
	}
	return r.execAffecting(ctx, sql, args, apperrors.ErrStudentNotFound)
}

// DeleteStudent removes a student profile
func (r *PgUserRepository) DeleteStudent(ctx context.Context, id string) error {
	sql, args, err := psql.Delete("students").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete student query: %w", err)
	}
	return r.execAffecting(ctx, sql, args, apperrors.ErrStudentNotFound)
}

// CreateStaff inserts a teacher or admin profile
func (r *PgUserRepository) CreateStaff(ctx context.Context, s *models.StaffProfile) error {
	table, err := staffTable(s.Role)
	if err != nil {
		return err
	}

	sql, args, err := psql.Insert(table).
		Columns(staffColumns...).
		Values(s.ID, s.UserUID, s.StaffID, s.Name, s.Email, s.Phone, s.Department, s.Position,
			s.DateOfBirth, s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create staff query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("staff member %s already exists", s.StaffID))
		}
		logger.Error().Err(err).Str("staffId", s.StaffID).Msg("Error creating staff profile")
		return fmt.Errorf("error creating staff profile: %w", err)
	}
	return nil
}

func (r *PgUserRepository) getStaff(ctx context.Context, role models.RoleType, where squirrel.Sqlizer) (*models.StaffProfile, error) {
	table, err := staffTable(role)
	if err != nil {
		return nil, err
	}
	notFound := apperrors.ErrTeacherNotFound
	if role == models.RoleAdmin {
		notFound = apperrors.ErrAdminNotFound
	}

	sql, args, err := psql.Select(staffColumns...).From(table).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get staff query: %w", err)
	}

	s := models.StaffProfile{Role: role}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.UserUID, &s.StaffID, &s.Name, &s.Email, &s.Phone,
		&s.Department, &s.Position, &s.DateOfBirth, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving staff profile: %w", err)
	}
	return &s, nil
}

// GetStaff retrieves a teacher or admin profile by ID
func (r *PgUserRepository) GetStaff(ctx context.Context, role models.RoleType, id string) (*models.StaffProfile, error) {
	return r.getStaff(ctx, role, squirrel.Eq{"id": id})
}

// GetStaffByUserUID retrieves the staff profile owned by an identity
func (r *PgUserRepository) GetStaffByUserUID(ctx context.Context, role models.RoleType, uid string) (*models.StaffProfile, error) {
	return r.getStaff(ctx, role, squirrel.Eq{"user_uid": uid})
}

// DeleteStaff removes a teacher or admin profile
func (r *PgUserRepository) DeleteStaff(ctx context.Context, role models.RoleType, id string) error {
	table, err := staffTable(role)
	if err != nil {
		return err
	}
	sql, args, err := psql.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete staff query: %w", err)
	}
	return r.execAffecting(ctx, sql, args, apperrors.ErrResourceNotFound)
}
