package services

import (
	"context"
	"errors"
	"testing"

	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classRequest(courseID, teacherID, section string) *dto.CreateClassRequest {
	return &dto.CreateClassRequest{
		Program:   "B.Tech",
		Branch:    "Computer Science",
		Section:   section,
		Year:      1,
		Semester:  1,
		CourseID:  courseID,
		TeacherID: teacherID,
	}
}

func TestCreateClassSnapshotsSection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.mustCourse(t, "CS101")
	teacher := env.mustTeacher(t, "Ravi Kumar", "ravi@college.edu")
	a := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	otherSection := studentRequest("Bala Iyer", "bala@college.edu")
	otherSection.Section = "B"
	_, err := env.accounts.ProvisionStudent(ctx, otherSection)
	require.NoError(t, err)

	class, err := env.classes.CreateClass(ctx, classRequest(course.ID, teacher.ID, "a"))
	require.NoError(t, err)
	assert.Equal(t, "A", class.Section)
	assert.Equal(t, []string{a.UserUID}, class.StudentUIDs)

	// Later joiners are not added
	env.mustStudent(t, "Chetan Das", "chetan@college.edu")
	stored, err := env.classes.GetClass(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.UserUID}, stored.StudentUIDs)

	room, err := env.classes.GetChatRoom(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS101 CS Y1-A", room.Name)
	assert.Equal(t, []string{teacher.UserUID, a.UserUID}, room.MemberUIDs)

	classes, err := env.classes.ListClasses(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Len(t, classes, 1)
	none, err := env.classes.ListClasses(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateClassRejectsDuplicateSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.mustCourse(t, "CS101")
	teacher := env.mustTeacher(t, "Ravi Kumar", "ravi@college.edu")

	_, err := env.classes.CreateClass(ctx, classRequest(course.ID, teacher.ID, "A"))
	require.NoError(t, err)
	_, err = env.classes.CreateClass(ctx, classRequest(course.ID, teacher.ID, "A"))
	assert.ErrorIs(t, err, apperrors.ErrClassAlreadyExists)

	_, err = env.classes.CreateClass(ctx, classRequest(course.ID, teacher.ID, "B"))
	assert.NoError(t, err)
}

func TestCreateClassChecksReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.mustCourse(t, "CS101")
	teacher := env.mustTeacher(t, "Ravi Kumar", "ravi@college.edu")

	_, err := env.classes.CreateClass(ctx, classRequest("missing", teacher.ID, "A"))
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
	_, err = env.classes.CreateClass(ctx, classRequest(course.ID, "missing", "A"))
	assert.ErrorIs(t, err, apperrors.ErrTeacherNotFound)
}

func TestCreateClassSurvivesChatRoomFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.mustCourse(t, "CS101")
	teacher := env.mustTeacher(t, "Ravi Kumar", "ravi@college.edu")

	env.db.FailOnce("Chats.CreateRoom", errors.New("unavailable"))
	class, err := env.classes.CreateClass(ctx, classRequest(course.ID, teacher.ID, "A"))
	require.NoError(t, err)
	assert.Contains(t, env.tasks.failed, "class-chat-room")

	_, err = env.classes.GetClass(ctx, class.ID)
	assert.NoError(t, err)
}

func TestTransferStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.mustCourse(t, "CS101")
	teacher := env.mustTeacher(t, "Ravi Kumar", "ravi@college.edu")
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	from, err := env.classes.CreateClass(ctx, classRequest(course.ID, teacher.ID, "A"))
	require.NoError(t, err)
	to, err := env.classes.CreateClass(ctx, classRequest(course.ID, teacher.ID, "B"))
	require.NoError(t, err)

	req := &dto.TransferStudentRequest{StudentUID: student.UserUID, FromClassID: from.ID, ToClassID: to.ID}
	require.NoError(t, env.classes.TransferStudent(ctx, req))

	gotFrom, err := env.classes.GetClass(ctx, from.ID)
	require.NoError(t, err)
	assert.Empty(t, gotFrom.StudentUIDs)
	gotTo, err := env.classes.GetClass(ctx, to.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{student.UserUID}, gotTo.StudentUIDs)

	assert.ErrorIs(t, env.classes.TransferStudent(ctx, req), apperrors.ErrNotInClass)

	back := &dto.TransferStudentRequest{StudentUID: student.UserUID, FromClassID: to.ID, ToClassID: to.ID}
	assert.ErrorIs(t, env.classes.TransferStudent(ctx, back), apperrors.ErrValidationFailed)
}
