package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterNextIsGapFreeUnderConcurrency(t *testing.T) {
	db := New()
	ctx := context.Background()

	const workers = 50
	var (
		mu   sync.Mutex
		seen []int64
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
				n, err := repos.Counters.Next(ctx, "student_BT24CS")
				if err != nil {
					return err
				}
				mu.Lock()
				seen = append(seen, n)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	require.Len(t, seen, workers)
	for i, n := range seen {
		assert.Equal(t, int64(i+1), n)
	}

	current, err := db.Repositories().Counters.Get(ctx, "student_BT24CS")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), current)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Counters.Next(ctx, "k"); err != nil {
			return err
		}
		if err := repos.Users.CreateUser(ctx, &models.User{UID: "u1", Email: "a@x.edu"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	repos := db.Repositories()
	current, err := repos.Counters.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, current)

	_, err = repos.Users.GetUserByUID(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestFailOnceInjectsSingleFault(t *testing.T) {
	db := New()
	ctx := context.Background()
	injected := errors.New("disk full")
	db.FailOnce("Users.CreateStudent", injected)

	student := &models.StudentProfile{ID: "s1", CollegeID: "BT24CS0001", UserUID: "u1"}
	err := db.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Users.CreateStudent(ctx, student)
	})
	require.ErrorIs(t, err, injected)

	require.NoError(t, db.Repositories().Users.CreateStudent(ctx, student))
	got, err := db.Repositories().Users.GetStudentByUserUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "BT24CS0001", got.CollegeID)
}

func TestCanceledContextSkipsTransaction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().WithTransaction(ctx, func(context.Context, *repositories.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestReadsReturnCopies(t *testing.T) {
	db := New()
	ctx := context.Background()
	repos := db.Repositories()

	require.NoError(t, repos.Hostels.Create(ctx, &models.Hostel{
		ID: "h1", Name: "Ganga", Type: "boys",
		Rooms: []models.Room{{Number: "G-1", Capacity: 2}},
	}))

	h, err := repos.Hostels.GetByID(ctx, "h1")
	require.NoError(t, err)
	h.Rooms[0].Residents = append(h.Rooms[0].Residents, models.Resident{StudentID: "s1"})

	again, err := repos.Hostels.GetByID(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, again.Rooms[0].Residents)
}

func TestClassSlotIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	c := &models.Class{ID: "c1", Program: "B.Tech", Branch: "CS", Section: "A", Year: 2, Semester: 3, CourseID: "co1"}
	require.NoError(t, repos.Classes.Create(ctx, c))

	dup := *c
	dup.ID = "c2"
	assert.ErrorIs(t, repos.Classes.Create(ctx, &dup), apperrors.ErrClassAlreadyExists)

	found, err := repos.Classes.FindSameSlot(ctx, &dup)
	require.NoError(t, err)
	assert.Equal(t, "c1", found.ID)

	other := dup
	other.Section = "B"
	_, err = repos.Classes.FindSameSlot(ctx, &other)
	assert.ErrorIs(t, err, apperrors.ErrClassNotFound)
}

func TestAttendanceScanNewestFirst(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	var batch []*models.AttendanceRecord
	for i := 1; i <= 5; i++ {
		batch = append(batch, &models.AttendanceRecord{StudentID: "s1", Period: i, Status: models.AttendancePresent})
	}
	require.NoError(t, repos.Attendance.Append(ctx, batch))

	recs, err := repos.Attendance.Scan(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 5, recs[0].Period)
	assert.Equal(t, 3, recs[2].Period)
}

func TestListStudentsFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	for _, s := range []*models.StudentProfile{
		{ID: "1", CollegeID: "BT24CS0002", Program: "B.Tech", Branch: "CS", Year: 1},
		{ID: "2", CollegeID: "BT24CS0001", Program: "B.Tech", Branch: "CS", Year: 1},
		{ID: "3", CollegeID: "BT24ME0001", Program: "B.Tech", Branch: "ME", Year: 1},
	} {
		require.NoError(t, repos.Users.CreateStudent(ctx, s))
	}

	got, err := repos.Users.ListStudents(ctx, models.CohortFilter{Branch: "CS"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BT24CS0001", got[0].CollegeID)

	page, err := repos.Users.ListStudents(ctx, models.CohortFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "BT24CS0002", page[0].CollegeID)
}
