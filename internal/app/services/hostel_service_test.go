package services

import (
	"context"
	"sync"
	"testing"

	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHostel(t *testing.T, env *testEnv, rooms ...dto.CreateRoomRequest) string {
	t.Helper()
	hostel, err := env.hostels.CreateHostel(context.Background(), &dto.CreateHostelRequest{
		Name: "Ganga", Type: "boys", Rooms: rooms,
	})
	require.NoError(t, err)
	return hostel.ID
}

func TestCreateHostelRejectsDuplicateRooms(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.hostels.CreateHostel(context.Background(), &dto.CreateHostelRequest{
		Name: "Ganga", Type: "boys",
		Rooms: []dto.CreateRoomRequest{{Number: "G-1", Capacity: 2}, {Number: "G-1", Capacity: 3}},
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRoomNumber)

	_, err = env.hostels.CreateHostel(context.Background(), &dto.CreateHostelRequest{
		Name: "Ganga", Type: "palace",
		Rooms: []dto.CreateRoomRequest{{Number: "G-1", Capacity: 2}},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestAllocateRoomRespectsCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hostelID := newHostel(t, env, dto.CreateRoomRequest{Number: "G-101", Capacity: 2})

	a := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")
	b := env.mustStudent(t, "Bala Iyer", "bala@college.edu")
	c := env.mustStudent(t, "Chetan Das", "chetan@college.edu")

	require.NoError(t, env.hostels.AllocateRoom(ctx, hostelID, "G-101", a.ID))
	require.NoError(t, env.hostels.AllocateRoom(ctx, hostelID, "G-101", b.ID))

	err := env.hostels.AllocateRoom(ctx, hostelID, "G-101", c.ID)
	require.ErrorIs(t, err, apperrors.ErrRoomFull)

	hostel, err := env.hostels.GetHostel(ctx, hostelID)
	require.NoError(t, err)
	require.Len(t, hostel.Rooms[0].Residents, 2)
	assert.Equal(t, a.ID, hostel.Rooms[0].Residents[0].StudentID)
	assert.Equal(t, "Arjun Rao", hostel.Rooms[0].Residents[0].StudentName)

	stored, err := env.repos.Users.GetStudent(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Hostel)
	assert.Equal(t, "G-101", stored.Hostel.RoomNumber)
	assert.Equal(t, "boys", stored.Hostel.HostelType)

	rejected, err := env.repos.Users.GetStudent(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, rejected.Hostel)
}

func TestAllocateRoomErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hostelID := newHostel(t, env,
		dto.CreateRoomRequest{Number: "G-1", Capacity: 1},
		dto.CreateRoomRequest{Number: "G-2", Capacity: 1},
	)
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	assert.ErrorIs(t, env.hostels.AllocateRoom(ctx, hostelID, "X-9", student.ID), apperrors.ErrRoomNotFound)
	assert.ErrorIs(t, env.hostels.AllocateRoom(ctx, "missing", "G-1", student.ID), apperrors.ErrHostelNotFound)
	assert.ErrorIs(t, env.hostels.AllocateRoom(ctx, hostelID, "G-1", "missing"), apperrors.ErrStudentNotFound)

	require.NoError(t, env.hostels.AllocateRoom(ctx, hostelID, "G-1", student.ID))
	assert.ErrorIs(t, env.hostels.AllocateRoom(ctx, hostelID, "G-2", student.ID), apperrors.ErrAlreadyAllocated)
}

func TestConcurrentAllocationNeverOverfills(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hostelID := newHostel(t, env, dto.CreateRoomRequest{Number: "G-1", Capacity: 2})

	ids := make([]string, 6)
	for i := range ids {
		ids[i] = env.mustStudent(t, "Student", "s"+string(rune('a'+i))+"@college.edu").ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		full int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := env.hostels.AllocateRoom(ctx, hostelID, "G-1", id)
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrRoomFull)
				mu.Lock()
				full++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	hostel, err := env.hostels.GetHostel(ctx, hostelID)
	require.NoError(t, err)
	assert.Len(t, hostel.Rooms[0].Residents, 2)
	assert.Equal(t, 4, full)
}

func TestDeallocateRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hostelID := newHostel(t, env, dto.CreateRoomRequest{Number: "G-1", Capacity: 2})
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")
	other := env.mustStudent(t, "Bala Iyer", "bala@college.edu")

	require.NoError(t, env.hostels.AllocateRoom(ctx, hostelID, "G-1", student.ID))
	require.NoError(t, env.hostels.DeallocateRoom(ctx, hostelID, "G-1", student.ID))

	hostel, err := env.hostels.GetHostel(ctx, hostelID)
	require.NoError(t, err)
	assert.Empty(t, hostel.Rooms[0].Residents)
	stored, err := env.repos.Users.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Hostel)

	// Not a resident: tolerated
	assert.NoError(t, env.hostels.DeallocateRoom(ctx, hostelID, "G-1", other.ID))
	assert.ErrorIs(t, env.hostels.DeallocateRoom(ctx, hostelID, "X-1", other.ID), apperrors.ErrRoomNotFound)

	// The freed bed can be taken again
	require.NoError(t, env.hostels.AllocateRoom(ctx, hostelID, "G-1", student.ID))
}

func TestDeallocateRoomKeepsAssignmentToAnotherHostel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ganga := newHostel(t, env, dto.CreateRoomRequest{Number: "G-1", Capacity: 2})
	yamuna, err := env.hostels.CreateHostel(ctx, &dto.CreateHostelRequest{
		Name: "Yamuna", Type: "boys", Rooms: []dto.CreateRoomRequest{{Number: "Y-1", Capacity: 2}},
	})
	require.NoError(t, err)
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	require.NoError(t, env.hostels.AllocateRoom(ctx, ganga, "G-1", student.ID))

	assert.ErrorIs(t, env.hostels.DeallocateRoom(ctx, yamuna.ID, "Y-1", student.ID), apperrors.ErrNotAllocated)
	stored, err := env.repos.Users.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Hostel)
	assert.Equal(t, ganga, stored.Hostel.HostelID)

	// Still housed in Ganga, so Yamuna stays closed to them
	assert.ErrorIs(t, env.hostels.AllocateRoom(ctx, yamuna.ID, "Y-1", student.ID), apperrors.ErrAlreadyAllocated)
	other, err := env.hostels.GetHostel(ctx, yamuna.ID)
	require.NoError(t, err)
	assert.Empty(t, other.Rooms[0].Residents)
}
