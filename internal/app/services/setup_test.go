package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/app/repositories/memory"
	"github.com/campusops/erp/internal/pkg/auth"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// inlineTasks runs every task as soon as it is queued
type inlineTasks struct {
	mu     sync.Mutex
	names  []string
	failed map[string]error
}

func (q *inlineTasks) Enqueue(name string, fn notifier.TaskFunc) bool {
	err := fn(context.Background())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.names = append(q.names, name)
	if err != nil {
		if q.failed == nil {
			q.failed = make(map[string]error)
		}
		q.failed[name] = err
	}
	return true
}

func (q *inlineTasks) ran(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, got := range q.names {
		if got == name {
			n++
		}
	}
	return n
}

type sentMail struct {
	kind, to, loginID, link string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) SendWelcomeEmail(_ context.Context, toEmail, _, loginID, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "welcome", to: toEmail, loginID: loginID, link: resetLink})
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, toEmail, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "reset", to: toEmail, link: resetLink})
	return nil
}

type recordingPusher struct {
	mu     sync.Mutex
	events map[string][]websocket.Event
}

func (p *recordingPusher) SendToUser(uid string, event websocket.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]websocket.Event)
	}
	p.events[uid] = append(p.events[uid], event)
	return true
}

type testEnv struct {
	db       *memory.DB
	repos    *repositories.Repositories
	provider *identity.Local
	tasks    *inlineTasks
	mailer   *recordingMailer
	pusher   *recordingPusher

	counters      *CounterService
	notifications *NotificationService
	accounts      *AccountService
	hostels       *HostelService
	classes       *ClassService
	attendance    *AttendanceService
	fees          *FeeService
	exams         *ExamService
	courses       *CourseService
	auth          *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := memory.New()
	repos := db.Repositories()
	logger := zerolog.Nop()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "erp-test",
	})
	provider := identity.NewLocal(repos, jwtService, identity.LocalConfig{
		ResetURL:   "http://localhost:3000/reset-password",
		BcryptCost: bcrypt.MinCost,
	})

	env := &testEnv{
		db:       db,
		repos:    repos,
		provider: provider,
		tasks:    &inlineTasks{},
		mailer:   &recordingMailer{},
		pusher:   &recordingPusher{},
	}
	env.counters = NewCounterService(db)
	env.notifications = NewNotificationService(repos, env.pusher, logger)
	env.accounts = NewAccountService(db, repos, env.counters, provider, env.notifications, env.mailer, env.tasks, logger)
	env.hostels = NewHostelService(db, repos, logger)
	env.classes = NewClassService(db, repos, env.tasks, logger)
	env.attendance = NewAttendanceService(repos, 0, logger)
	env.fees = NewFeeService(db, repos, nil, env.notifications, env.tasks, logger)
	env.exams = NewExamService(repos, env.attendance, env.notifications, env.tasks, logger)
	env.courses = NewCourseService(repos, nil, logger)
	env.auth = NewAuthService(repos, provider, provider, env.mailer, env.tasks, logger)
	return env
}

func studentRequest(name, email string) *dto.CreateStudentRequest {
	return &dto.CreateStudentRequest{
		Name:        name,
		Email:       email,
		DateOfBirth: "2006-08-14",
		Program:     "B.Tech",
		Branch:      "Computer Science",
		Section:     "A",
		Year:        1,
		Semester:    1,
		TotalFees:   150000,
		FeeDueDate:  "2099-08-31",
	}
}

// mustStudent provisions a student and returns its profile
func (e *testEnv) mustStudent(t *testing.T, name, email string) *models.StudentProfile {
	t.Helper()
	resp, err := e.accounts.ProvisionStudent(context.Background(), studentRequest(name, email))
	require.NoError(t, err)
	student, err := e.repos.Users.GetStudent(context.Background(), resp.ProfileID)
	require.NoError(t, err)
	return student
}

func (e *testEnv) mustTeacher(t *testing.T, name, email string) *models.StaffProfile {
	t.Helper()
	resp, err := e.accounts.ProvisionStaff(context.Background(), &dto.CreateStaffRequest{
		Name:        name,
		Email:       email,
		DateOfBirth: "1985-02-01",
		Role:        models.RoleTeacher,
		Department:  "Computer Science",
	})
	require.NoError(t, err)
	teacher, err := e.repos.Users.GetStaff(context.Background(), models.RoleTeacher, resp.ProfileID)
	require.NoError(t, err)
	return teacher
}

func (e *testEnv) mustCourse(t *testing.T, code string) *models.Course {
	t.Helper()
	course, err := e.courses.CreateCourse(context.Background(), &dto.CreateCourseRequest{
		Code:     code,
		Name:     "Data Structures",
		Program:  "B.Tech",
		Branch:   "Computer Science",
		Semester: 1,
		Credits:  4,
	})
	require.NoError(t, err)
	return course
}

// pinClock fixes the clock of every service
func (e *testEnv) pinClock(at time.Time) {
	clock := func() time.Time { return at }
	e.notifications.now = clock
	e.accounts.now = clock
	e.hostels.now = clock
	e.classes.now = clock
	e.attendance.now = clock
	e.fees.now = clock
	e.exams.now = clock
	e.courses.now = clock
	e.auth.now = clock
}
