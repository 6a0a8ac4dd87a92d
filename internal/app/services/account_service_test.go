package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var farFuture = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

func TestProvisionStudentWritesEveryRecord(t *testing.T) {
	env := newTestEnv(t)
	env.pinClock(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	resp, err := env.accounts.ProvisionStudent(ctx, studentRequest("Anita Sharma", "Anita@College.edu"))
	require.NoError(t, err)
	assert.Equal(t, "BT24CS0001", resp.LoginID)
	assert.Equal(t, models.RoleStudent, resp.Role)
	assert.Equal(t, "anita@college.edu", resp.Email)

	user, err := env.repos.Users.GetUserByUID(ctx, resp.UID)
	require.NoError(t, err)
	assert.Equal(t, "BT24CS0001", user.CollegeID)
	assert.Equal(t, "AS", user.Initials)
	assert.Equal(t, resp.ProfileID, user.RoleDocID)

	student, err := env.repos.Users.GetStudent(ctx, resp.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, user.UID, student.UserUID)
	assert.Equal(t, "B.Tech", student.Program)

	ledger, err := env.repos.Fees.GetLedger(ctx, resp.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), ledger.TotalFees)
	assert.Equal(t, int64(150000), ledger.Balance())

	record, err := env.provider.GetUserByEmail(ctx, "anita@college.edu")
	require.NoError(t, err)
	assert.Equal(t, resp.UID, record.UID)
	assert.Equal(t, "student", record.CustomClaims["role"])
	assert.Equal(t, "BT24CS0001", record.CustomClaims["collegeId"])
	assert.Equal(t, resp.ProfileID, record.CustomClaims["roleDocId"])

	// Initial password: first four letters of the first name, @, date of birth
	_, _, err = env.provider.SignIn(ctx, "anita@college.edu", "anit@14082006")
	require.NoError(t, err)

	pending, err := env.repos.Sagas.ListPending(ctx, farFuture, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, "welcome", env.mailer.sent[0].kind)
	assert.Equal(t, "BT24CS0001", env.mailer.sent[0].loginID)
	assert.Contains(t, env.mailer.sent[0].link, "token=")

	notes, err := env.notifications.List(ctx, resp.UID, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Welcome", notes[0].Title)
	assert.Len(t, env.pusher.events[resp.UID], 1)

	second, err := env.accounts.ProvisionStudent(ctx, studentRequest("Rahul Verma", "rahul@college.edu"))
	require.NoError(t, err)
	assert.Equal(t, "BT24CS0002", second.LoginID)
}

func TestProvisionStaffIDs(t *testing.T) {
	env := newTestEnv(t)
	env.pinClock(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	admin, err := env.accounts.ProvisionStaff(ctx, &dto.CreateStaffRequest{
		Name: "Meera Iyer", Email: "meera@college.edu", DateOfBirth: "1980-05-20",
		Role: models.RoleAdmin, Department: "Administration",
	})
	require.NoError(t, err)
	assert.Equal(t, "ADM24AD0001", admin.LoginID)

	teacher, err := env.accounts.ProvisionStaff(ctx, &dto.CreateStaffRequest{
		Name: "Ravi Kumar", Email: "ravi@college.edu", DateOfBirth: "1985-02-01",
		Role: models.RoleTeacher, Department: "Computer Science", Position: "Assistant Professor",
	})
	require.NoError(t, err)
	assert.Equal(t, "TCH24CS0001", teacher.LoginID)

	profile, err := env.repos.Users.GetStaff(ctx, models.RoleTeacher, teacher.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, "TCH24CS0001", profile.StaffID)
	assert.Equal(t, "Assistant Professor", profile.Position)

	_, err = env.repos.Users.GetStaff(ctx, models.RoleAdmin, teacher.ProfileID)
	assert.ErrorIs(t, err, apperrors.ErrAdminNotFound)
}

func TestProvisionRejectsRegisteredEmail(t *testing.T) {
	env := newTestEnv(t)
	env.pinClock(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := env.accounts.ProvisionStudent(ctx, studentRequest("Anita Sharma", "anita@college.edu"))
	require.NoError(t, err)

	_, err = env.accounts.ProvisionStudent(ctx, studentRequest("Anita S", "ANITA@college.edu"))
	require.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)

	// The check runs before an ID is allocated
	current, err := env.repos.Counters.Get(ctx, "student_BT24CS")
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
}

func TestProvisionValidatesBeforeIO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := studentRequest("Anita Sharma", "not-an-email")
	req.DateOfBirth = "14/08/2006"
	_, err := env.accounts.ProvisionStudent(ctx, req)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	current, err := env.repos.Counters.Get(ctx, "student_BT"+time.Now().UTC().Format("06")+"CS")
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestProvisionCompensatesWhenRecordsFail(t *testing.T) {
	env := newTestEnv(t)
	env.pinClock(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	boom := errors.New("disk full")
	env.db.FailOnce("Fees.CreateLedger", boom)

	_, err := env.accounts.ProvisionStudent(ctx, studentRequest("Anita Sharma", "anita@college.edu"))
	require.ErrorIs(t, err, apperrors.ErrProvisioningFailed)
	require.ErrorIs(t, err, boom)

	_, err = env.provider.GetUserByEmail(ctx, "anita@college.edu")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
	_, err = env.repos.Users.GetUserByEmail(ctx, "anita@college.edu")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	students, err := env.repos.Users.ListStudents(ctx, models.CohortFilter{})
	require.NoError(t, err)
	assert.Empty(t, students)

	pending, err := env.repos.Sagas.ListPending(ctx, farFuture, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, env.mailer.sent)

	// The consumed sequence number is not reused
	resp, err := env.accounts.ProvisionStudent(ctx, studentRequest("Anita Sharma", "anita@college.edu"))
	require.NoError(t, err)
	assert.Equal(t, "BT24CS0002", resp.LoginID)
}

func TestFailedCompensationIsReconciled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.db.FailOnce("Users.CreateStudent", errors.New("constraint check failed"))
	env.db.FailOnce("Credentials.Delete", errors.New("provider unavailable"))

	_, err := env.accounts.ProvisionStudent(ctx, studentRequest("Anita Sharma", "anita@college.edu"))
	require.ErrorIs(t, err, apperrors.ErrProvisioningFailed)

	// The orphaned identity is still there and the saga stays pending
	orphan, err := env.provider.GetUserByEmail(ctx, "anita@college.edu")
	require.NoError(t, err)
	pending, err := env.repos.Sagas.ListPending(ctx, farFuture, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, orphan.UID, pending[0].AuthUID)
	assert.Contains(t, pending[0].LastError, "provider unavailable")

	reconciler := NewSagaReconciler(env.repos, env.provider, ReconcilerConfig{}, zerolog.Nop())
	reconciler.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	settled, err := reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	saga, err := env.repos.Sagas.Get(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SagaCompensated, saga.State)
	assert.Greater(t, saga.Attempts, pending[0].Attempts)

	_, err = env.provider.GetUserByEmail(ctx, "anita@college.edu")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestReconcilerCompletesSagaWithRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.accounts.ProvisionStudent(ctx, studentRequest("Anita Sharma", "anita@college.edu"))
	require.NoError(t, err)

	// A crash between the record write and the saga update leaves this behind
	stale := time.Now().UTC().Add(-time.Hour)
	saga := &models.ProvisioningSaga{
		ID:         "saga-crashed",
		AuthUID:    resp.UID,
		Email:      resp.Email,
		Role:       models.RoleStudent,
		State:      models.SagaPending,
		Timestamps: models.Timestamps{CreatedAt: stale, UpdatedAt: stale},
	}
	require.NoError(t, env.repos.Sagas.Create(ctx, saga))

	reconciler := NewSagaReconciler(env.repos, env.provider, ReconcilerConfig{Grace: time.Minute}, zerolog.Nop())
	settled, err := reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	got, err := env.repos.Sagas.Get(ctx, "saga-crashed")
	require.NoError(t, err)
	assert.Equal(t, models.SagaCompleted, got.State)

	_, err = env.provider.GetUserByEmail(ctx, "anita@college.edu")
	assert.NoError(t, err)
}

func TestConcurrentProvisioningIssuesDistinctIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 20
	var (
		mu  sync.Mutex
		ids = make(map[string]bool)
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.accounts.ProvisionStudent(ctx, studentRequest("Student", fmt.Sprintf("s%02d@college.edu", i)))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[resp.LoginID] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, ids, n)
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	student := env.mustStudent(t, "Anita Sharma", "anita@college.edu")
	hostel, err := env.hostels.CreateHostel(ctx, &dto.CreateHostelRequest{
		Name: "Ganga", Type: "girls", Rooms: []dto.CreateRoomRequest{{Number: "G-1", Capacity: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, env.hostels.AllocateRoom(ctx, hostel.ID, "G-1", student.ID))

	require.NoError(t, env.accounts.DeleteAccount(ctx, student.UserUID))

	_, err = env.repos.Users.GetUserByUID(ctx, student.UserUID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	_, err = env.repos.Users.GetStudent(ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	_, err = env.repos.Fees.GetLedger(ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrFeeLedgerNotFound)
	_, err = env.provider.GetUserByEmail(ctx, "anita@college.edu")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	got, err := env.hostels.GetHostel(ctx, hostel.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Rooms[0].Residents)

	assert.ErrorIs(t, env.accounts.DeleteAccount(ctx, student.UserUID), apperrors.ErrUserNotFound)
}

func TestUpdateProfileRecomputesInitials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.mustStudent(t, "Anita Sharma", "anita@college.edu")

	user, err := env.accounts.UpdateProfile(ctx, student.UserUID, &dto.UpdateProfileRequest{
		Name:      "  Rekha Nair ",
		AvatarURL: "https://cdn.college.edu/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rekha Nair", user.Name)
	assert.Equal(t, "RN", user.Initials)

	stored, err := env.repos.Users.GetUserByUID(ctx, student.UserUID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.college.edu/a.png", stored.AvatarURL)

	_, err = env.accounts.UpdateProfile(ctx, student.UserUID, &dto.UpdateProfileRequest{Name: "R", AvatarURL: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestListStudentsPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		env.mustStudent(t, "Student", fmt.Sprintf("s%d@college.edu", i))
	}

	page, err := env.accounts.ListStudents(ctx, models.CohortFilter{Program: "B.Tech"}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Students, 1)
	assert.Equal(t, int64(3), page.Pagination.TotalItems)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
}

func TestProvisionStudentAppliesFeeDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.pinClock(time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC))
	env.accounts.WithFeeDefaults(FeeDefaults{TotalFees: 99000, DueAfterMonths: 6})

	req := studentRequest("Kavya Menon", "kavya@college.edu")
	req.TotalFees, req.FeeDueDate = 0, ""
	resp, err := env.accounts.ProvisionStudent(ctx, req)
	require.NoError(t, err)

	ledger, err := env.repos.Fees.GetLedger(ctx, resp.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, int64(99000), ledger.TotalFees)
	assert.Equal(t, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), ledger.DueDate)
}
