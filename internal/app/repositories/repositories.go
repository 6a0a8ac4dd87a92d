package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/db"
	"github.com/jackc/pgx/v5"
)

// CounterRepository hands out per-key sequence numbers. Next must run inside a transaction.
type CounterRepository interface {
	Next(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// UserRepository stores identities and role profiles
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, uid string) error

	CreateStudent(ctx context.Context, student *models.StudentProfile) error
	GetStudent(ctx context.Context, id string) (*models.StudentProfile, error)
	// GetStudentForUpdate locks the row until the surrounding transaction ends
	GetStudentForUpdate(ctx context.Context, id string) (*models.StudentProfile, error)
	GetStudentByUserUID(ctx context.Context, uid string) (*models.StudentProfile, error)
	GetStudentsByIDs(ctx context.Context, ids []string) ([]*models.StudentProfile, error)
	ListStudents(ctx context.Context, filter models.CohortFilter) ([]*models.StudentProfile, error)
	CountStudents(ctx context.Context, filter models.CohortFilter) (int64, error)
	UpdateStudentHostel(ctx context.Context, studentID string, assignment *models.HostelAssignment) error
	DeleteStudent(ctx context.Context, id string) error

	CreateStaff(ctx context.Context, staff *models.StaffProfile) error
	GetStaff(ctx context.Context, role models.RoleType, id string) (*models.StaffProfile, error)
	GetStaffByUserUID(ctx context.Context, role models.RoleType, uid string) (*models.StaffProfile, error)
	DeleteStaff(ctx context.Context, role models.RoleType, id string) error
}

// FeeRepository stores one ledger per student
type FeeRepository interface {
	CreateLedger(ctx context.Context, ledger *models.FeeLedger) error
	GetLedger(ctx context.Context, studentID string) (*models.FeeLedger, error)
	GetLedgerForUpdate(ctx context.Context, studentID string) (*models.FeeLedger, error)
	UpdateLedger(ctx context.Context, ledger *models.FeeLedger) error
	DeleteLedger(ctx context.Context, studentID string) error
}

// HostelRepository stores hostels with their embedded rooms
type HostelRepository interface {
	Create(ctx context.Context, hostel *models.Hostel) error
	GetByID(ctx context.Context, id string) (*models.Hostel, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Hostel, error)
	List(ctx context.Context) ([]*models.Hostel, error)
	UpdateRooms(ctx context.Context, hostelID string, rooms []models.Room) error
}

// ClassRepository stores class rosters
type ClassRepository interface {
	Create(ctx context.Context, class *models.Class) error
	GetByID(ctx context.Context, id string) (*models.Class, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Class, error)
	FindSameSlot(ctx context.Context, class *models.Class) (*models.Class, error)
	List(ctx context.Context, teacherID string) ([]*models.Class, error)
	UpdateRoster(ctx context.Context, classID string, studentUIDs []string) error
}

// CourseRepository stores courses
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByCode(ctx context.Context, code string) (*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, program, branch string, semester int) ([]*models.Course, error)
}

// AttendanceRepository is append-only
type AttendanceRepository interface {
	Append(ctx context.Context, records []*models.AttendanceRecord) error
	// Scan returns at most limit records, newest first
	Scan(ctx context.Context, limit int) ([]*models.AttendanceRecord, error)
	// ListByStudent returns every record of one student, newest first
	ListByStudent(ctx context.Context, studentID string) ([]*models.AttendanceRecord, error)
}

// ExamRepository stores scheduled exams
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]*models.Exam, error)
}

// HallTicketRepository stores one ticket per student and semester
type HallTicketRepository interface {
	Upsert(ctx context.Context, ticket *models.HallTicket) error
	Get(ctx context.Context, studentID string, semester int) (*models.HallTicket, error)
}

// NotificationRepository stores in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, uid string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, uid, id string) error
}

// ChatRepository stores class chat rooms
type ChatRepository interface {
	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	GetByClassID(ctx context.Context, classID string) (*models.ChatRoom, error)
}

// LoginActivityRepository records sign-ins
type LoginActivityRepository interface {
	Record(ctx context.Context, activity *models.LoginActivity) error
	ListByUser(ctx context.Context, uid string, limit int) ([]*models.LoginActivity, error)
}

// MaterialRepository stores course material metadata
type MaterialRepository interface {
	Create(ctx context.Context, m *models.Material) error
	GetByID(ctx context.Context, id string) (*models.Material, error)
	ListByCourse(ctx context.Context, courseCode string) ([]*models.Material, error)
	Delete(ctx context.Context, id string) error
}

// SagaRepository tracks provisioning sagas
type SagaRepository interface {
	Create(ctx context.Context, saga *models.ProvisioningSaga) error
	Get(ctx context.Context, id string) (*models.ProvisioningSaga, error)
	// UpdateState sets the state and last error and increments attempts
	UpdateState(ctx context.Context, id string, state models.SagaState, lastError string) error
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*models.ProvisioningSaga, error)
}

// CredentialRepository backs the local identity provider
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByUID(ctx context.Context, uid string) (*models.Credential, error)
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
	Delete(ctx context.Context, uid string) error
}

// TokenRepository stores refresh and password reset tokens
type TokenRepository interface {
	Create(ctx context.Context, token *models.AuthToken) error
	Get(ctx context.Context, token string, kind models.TokenKind) (*models.AuthToken, error)
	MarkUsed(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, uid string) error
}

// Repositories holds all the repository instances
type Repositories struct {
	Counters      CounterRepository
	Users         UserRepository
	Fees          FeeRepository
	Hostels       HostelRepository
	Classes       ClassRepository
	Courses       CourseRepository
	Attendance    AttendanceRepository
	Exams         ExamRepository
	HallTickets   HallTicketRepository
	Notifications NotificationRepository
	Chats         ChatRepository
	LoginActivity LoginActivityRepository
	Materials     MaterialRepository
	Sagas         SagaRepository
	Credentials   CredentialRepository
	Tokens        TokenRepository
}

// TxFn runs against repositories bound to one transaction
type TxFn func(ctx context.Context, repos *Repositories) error

// Transactor runs a function atomically. Either every write made through repos
// commits or none does.
type Transactor interface {
	WithTransaction(ctx context.Context, fn TxFn) error
}

// psql is the shared statement builder for PostgreSQL placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// NewRepositories initializes all PostgreSQL repositories on conn, which may be the
// pool or an open transaction
func NewRepositories(conn db.DBTX) *Repositories {
	return &Repositories{
		Counters:      NewCounterRepository(conn),
		Users:         NewUserRepository(conn),
		Fees:          NewFeeRepository(conn),
		Hostels:       NewHostelRepository(conn),
		Classes:       NewClassRepository(conn),
		Courses:       NewCourseRepository(conn),
		Attendance:    NewAttendanceRepository(conn),
		Exams:         NewExamRepository(conn),
		HallTickets:   NewHallTicketRepository(conn),
		Notifications: NewNotificationRepository(conn),
		Chats:         NewChatRepository(conn),
		LoginActivity: NewLoginActivityRepository(conn),
		Materials:     NewMaterialRepository(conn),
		Sagas:         NewSagaRepository(conn),
		Credentials:   NewCredentialRepository(conn),
		Tokens:        NewTokenRepository(conn),
	}
}

// PostgresTransactor opens serializable transactions on a PostgresDB
type PostgresTransactor struct {
	db *db.PostgresDB
}

// NewPostgresTransactor creates a Transactor backed by PostgreSQL
func NewPostgresTransactor(database *db.PostgresDB) *PostgresTransactor {
	return &PostgresTransactor{db: database}
}

// WithTransaction implements Transactor
func (t *PostgresTransactor) WithTransaction(ctx context.Context, fn TxFn) error {
	return t.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}
