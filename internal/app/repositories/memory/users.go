package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/pkg/apperrors"
)

type counterRepo struct{ *store }

func (r *counterRepo) Next(_ context.Context, key string) (int64, error) {
	var next int64
	err := r.update("Counters.Next", func(t *tables) error {
		next = t.counters[key] + 1
		t.counters[key] = next
		return nil
	})
	return next, err
}

func (r *counterRepo) Get(_ context.Context, key string) (int64, error) {
	var current int64
	err := r.view(func(t *tables) error {
		current = t.counters[key]
		return nil
	})
	return current, err
}

type userRepo struct{ *store }

func (r *userRepo) CreateUser(_ context.Context, user *models.User) error {
	return r.update("Users.CreateUser", func(t *tables) error {
		if _, ok := t.users[user.UID]; ok {
			return apperrors.NewConflictError("user already exists")
		}
		for _, u := range t.users {
			if u.Email == user.Email {
				return apperrors.ErrEmailAlreadyExists
			}
		}
		t.users[user.UID] = copyOf(user)
		return nil
	})
}

func (r *userRepo) findUser(match func(*models.User) bool) (*models.User, error) {
	var found *models.User
	err := r.view(func(t *tables) error {
		for _, u := range t.users {
			if match(u) {
				found = copyOf(u)
				return nil
			}
		}
		return apperrors.ErrUserNotFound
	})
	return found, err
}

func (r *userRepo) GetUserByUID(_ context.Context, uid string) (*models.User, error) {
	return r.findUser(func(u *models.User) bool { return u.UID == uid })
}

func (r *userRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findUser(func(u *models.User) bool { return u.Email == email })
}

func (r *userRepo) UpdateUser(_ context.Context, user *models.User) error {
	return r.update("Users.UpdateUser", func(t *tables) error {
		existing, ok := t.users[user.UID]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		existing.Name = user.Name
		existing.Initials = user.Initials
		existing.AvatarURL = user.AvatarURL
		existing.UpdatedAt = user.UpdatedAt
		return nil
	})
}

func (r *userRepo) DeleteUser(_ context.Context, uid string) error {
	return r.update("Users.DeleteUser", func(t *tables) error {
		if _, ok := t.users[uid]; !ok {
			return apperrors.ErrUserNotFound
		}
		delete(t.users, uid)
		return nil
	})
}

func (r *userRepo) CreateStudent(_ context.Context, s *models.StudentProfile) error {
	return r.update("Users.CreateStudent", func(t *tables) error {
		for _, existing := range t.students {
			if existing.ID == s.ID || existing.CollegeID == s.CollegeID {
				return apperrors.NewConflictError(fmt.Sprintf("student %s already exists", s.CollegeID))
			}
		}
		t.students[s.ID] = cloneStudent(s)
		return nil
	})
}

func (r *userRepo) findStudent(match func(*models.StudentProfile) bool) (*models.StudentProfile, error) {
	var found *models.StudentProfile
	err := r.view(func(t *tables) error {
		for _, s := range t.students {
			if match(s) {
				found = cloneStudent(s)
				return nil
			}
		}
		return apperrors.ErrStudentNotFound
	})
	return found, err
}

func (r *userRepo) GetStudent(_ context.Context, id string) (*models.StudentProfile, error) {
	return r.findStudent(func(s *models.StudentProfile) bool { return s.ID == id })
}

func (r *userRepo) GetStudentForUpdate(ctx context.Context, id string) (*models.StudentProfile, error) {
	return r.GetStudent(ctx, id)
}

func (r *userRepo) GetStudentByUserUID(_ context.Context, uid string) (*models.StudentProfile, error) {
	return r.findStudent(func(s *models.StudentProfile) bool { return s.UserUID == uid })
}

func (r *userRepo) GetStudentsByIDs(_ context.Context, ids []string) ([]*models.StudentProfile, error) {
	var out []*models.StudentProfile
	err := r.view(func(t *tables) error {
		for _, id := range ids {
			if s, ok := t.students[id]; ok {
				out = append(out, cloneStudent(s))
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepo) ListStudents(_ context.Context, f models.CohortFilter) ([]*models.StudentProfile, error) {
	var out []*models.StudentProfile
	err := r.view(func(t *tables) error {
		for _, s := range t.students {
			if f.Matches(s) {
				out = append(out, cloneStudent(s))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CollegeID < out[j].CollegeID })
	return paginate(out, f.Offset, f.Limit), err
}

func (r *userRepo) CountStudents(_ context.Context, f models.CohortFilter) (int64, error) {
	var n int64
	err := r.view(func(t *tables) error {
		for _, s := range t.students {
			if f.Matches(s) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *userRepo) UpdateStudentHostel(_ context.Context, studentID string, a *models.HostelAssignment) error {
	return r.update("Users.UpdateStudentHostel", func(t *tables) error {
		s, ok := t.students[studentID]
		if !ok {
			return apperrors.ErrStudentNotFound
		}
		if a == nil {
			s.Hostel = nil
		} else {
			assignment := *a
			s.Hostel = &assignment
		}
		s.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *userRepo) DeleteStudent(_ context.Context, id string) error {
	return r.update("Users.DeleteStudent", func(t *tables) error {
		if _, ok := t.students[id]; !ok {
			return apperrors.ErrStudentNotFound
		}
		delete(t.students, id)
		return nil
	})
}

func staffNotFound(role models.RoleType) error {
	if role == models.RoleAdmin {
		return apperrors.ErrAdminNotFound
	}
	return apperrors.ErrTeacherNotFound
}

func (r *userRepo) CreateStaff(_ context.Context, s *models.StaffProfile) error {
	return r.update("Users.CreateStaff", func(t *tables) error {
		profiles, ok := t.staff[s.Role]
		if !ok {
			return fmt.Errorf("role %q has no staff table", s.Role)
		}
		for _, existing := range profiles {
			if existing.ID == s.ID || existing.StaffID == s.StaffID {
				return apperrors.NewConflictError(fmt.Sprintf("staff member %s already exists", s.StaffID))
			}
		}
		profiles[s.ID] = copyOf(s)
		return nil
	})
}

func (r *userRepo) findStaff(role models.RoleType, match func(*models.StaffProfile) bool) (*models.StaffProfile, error) {
	var found *models.StaffProfile
	err := r.view(func(t *tables) error {
		for _, s := range t.staff[role] {
			if match(s) {
				found = copyOf(s)
				return nil
			}
		}
		return staffNotFound(role)
	})
	return found, err
}

func (r *userRepo) GetStaff(_ context.Context, role models.RoleType, id string) (*models.StaffProfile, error) {
	return r.findStaff(role, func(s *models.StaffProfile) bool { return s.ID == id })
}

func (r *userRepo) GetStaffByUserUID(_ context.Context, role models.RoleType, uid string) (*models.StaffProfile, error) {
	return r.findStaff(role, func(s *models.StaffProfile) bool { return s.UserUID == uid })
}

func (r *userRepo) DeleteStaff(_ context.Context, role models.RoleType, id string) error {
	return r.update("Users.DeleteStaff", func(t *tables) error {
		if _, ok := t.staff[role][id]; !ok {
			return apperrors.ErrResourceNotFound
		}
		delete(t.staff[role], id)
		return nil
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		return items
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
