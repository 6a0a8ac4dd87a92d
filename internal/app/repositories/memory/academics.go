package memory

import (
	"context"
	"sort"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/pkg/apperrors"
)

type feeRepo struct{ *store }

func (r *feeRepo) CreateLedger(_ context.Context, l *models.FeeLedger) error {
	return r.update("Fees.CreateLedger", func(t *tables) error {
		if _, ok := t.fees[l.StudentID]; ok {
			return apperrors.NewConflictError("fee ledger already exists for student")
		}
		t.fees[l.StudentID] = cloneLedger(l)
		return nil
	})
}

func (r *feeRepo) GetLedger(_ context.Context, studentID string) (*models.FeeLedger, error) {
	var out *models.FeeLedger
	err := r.view(func(t *tables) error {
		l, ok := t.fees[studentID]
		if !ok {
			return apperrors.ErrFeeLedgerNotFound
		}
		out = cloneLedger(l)
		return nil
	})
	return out, err
}

func (r *feeRepo) GetLedgerForUpdate(ctx context.Context, studentID string) (*models.FeeLedger, error) {
	return r.GetLedger(ctx, studentID)
}

func (r *feeRepo) UpdateLedger(_ context.Context, l *models.FeeLedger) error {
	return r.update("Fees.UpdateLedger", func(t *tables) error {
		if _, ok := t.fees[l.StudentID]; !ok {
			return apperrors.ErrFeeLedgerNotFound
		}
		t.fees[l.StudentID] = cloneLedger(l)
		return nil
	})
}

func (r *feeRepo) DeleteLedger(_ context.Context, studentID string) error {
	return r.update("Fees.DeleteLedger", func(t *tables) error {
		delete(t.fees, studentID)
		return nil
	})
}

type hostelRepo struct{ *store }

func (r *hostelRepo) Create(_ context.Context, h *models.Hostel) error {
	return r.update("Hostels.Create", func(t *tables) error {
		if _, ok := t.hostels[h.ID]; ok {
			return apperrors.NewConflictError("hostel already exists")
		}
		t.hostels[h.ID] = h.Clone()
		return nil
	})
}

func (r *hostelRepo) GetByID(_ context.Context, id string) (*models.Hostel, error) {
	var out *models.Hostel
	err := r.view(func(t *tables) error {
		h, ok := t.hostels[id]
		if !ok {
			return apperrors.ErrHostelNotFound
		}
		out = h.Clone()
		return nil
	})
	return out, err
}

func (r *hostelRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Hostel, error) {
	return r.GetByID(ctx, id)
}

func (r *hostelRepo) List(_ context.Context) ([]*models.Hostel, error) {
	var out []*models.Hostel
	err := r.view(func(t *tables) error {
		for _, h := range t.hostels {
			out = append(out, h.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *hostelRepo) UpdateRooms(_ context.Context, hostelID string, rooms []models.Room) error {
	return r.update("Hostels.UpdateRooms", func(t *tables) error {
		h, ok := t.hostels[hostelID]
		if !ok {
			return apperrors.ErrHostelNotFound
		}
		updated := (&models.Hostel{Rooms: rooms}).Clone()
		h.Rooms = updated.Rooms
		h.UpdatedAt = time.Now().UTC()
		return nil
	})
}

type classRepo struct{ *store }

func (r *classRepo) Create(_ context.Context, c *models.Class) error {
	return r.update("Classes.Create", func(t *tables) error {
		for _, existing := range t.classes {
			if existing.SameSlot(c) {
				return apperrors.ErrClassAlreadyExists
			}
		}
		t.classes[c.ID] = cloneClass(c)
		return nil
	})
}

func (r *classRepo) GetByID(_ context.Context, id string) (*models.Class, error) {
	var out *models.Class
	err := r.view(func(t *tables) error {
		c, ok := t.classes[id]
		if !ok {
			return apperrors.ErrClassNotFound
		}
		out = cloneClass(c)
		return nil
	})
	return out, err
}

func (r *classRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Class, error) {
	return r.GetByID(ctx, id)
}

func (r *classRepo) FindSameSlot(_ context.Context, c *models.Class) (*models.Class, error) {
	var out *models.Class
	err := r.view(func(t *tables) error {
		for _, existing := range t.classes {
			if existing.SameSlot(c) {
				out = cloneClass(existing)
				return nil
			}
		}
		return apperrors.ErrClassNotFound
	})
	return out, err
}

func (r *classRepo) List(_ context.Context, teacherID string) ([]*models.Class, error) {
	var out []*models.Class
	err := r.view(func(t *tables) error {
		for _, c := range t.classes {
			if teacherID == "" || c.TeacherID == teacherID {
				out = append(out, cloneClass(c))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Program != b.Program {
			return a.Program < b.Program
		}
		if a.Branch != b.Branch {
			return a.Branch < b.Branch
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Section < b.Section
	})
	return out, err
}

func (r *classRepo) UpdateRoster(_ context.Context, classID string, studentUIDs []string) error {
	return r.update("Classes.UpdateRoster", func(t *tables) error {
		c, ok := t.classes[classID]
		if !ok {
			return apperrors.ErrClassNotFound
		}
		c.StudentUIDs = append([]string{}, studentUIDs...)
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
}

type courseRepo struct{ *store }

func (r *courseRepo) Create(_ context.Context, c *models.Course) error {
	return r.update("Courses.Create", func(t *tables) error {
		for _, existing := range t.courses {
			if existing.Code == c.Code {
				return apperrors.ErrCourseAlreadyExists
			}
		}
		t.courses[c.ID] = copyOf(c)
		return nil
	})
}

func (r *courseRepo) find(match func(*models.Course) bool) (*models.Course, error) {
	var out *models.Course
	err := r.view(func(t *tables) error {
		for _, c := range t.courses {
			if match(c) {
				out = copyOf(c)
				return nil
			}
		}
		return apperrors.ErrCourseNotFound
	})
	return out, err
}

func (r *courseRepo) GetByCode(_ context.Context, code string) (*models.Course, error) {
	return r.find(func(c *models.Course) bool { return c.Code == code })
}

func (r *courseRepo) GetByID(_ context.Context, id string) (*models.Course, error) {
	return r.find(func(c *models.Course) bool { return c.ID == id })
}

func (r *courseRepo) List(_ context.Context, program, branch string, semester int) ([]*models.Course, error) {
	var out []*models.Course
	err := r.view(func(t *tables) error {
		for _, c := range t.courses {
			if program != "" && c.Program != program {
				continue
			}
			if branch != "" && c.Branch != branch {
				continue
			}
			if semester != 0 && c.Semester != semester {
				continue
			}
			out = append(out, copyOf(c))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

type attendanceRepo struct{ *store }

func (r *attendanceRepo) Append(_ context.Context, records []*models.AttendanceRecord) error {
	return r.update("Attendance.Append", func(t *tables) error {
		for _, rec := range records {
			t.attendance = append(t.attendance, copyOf(rec))
		}
		return nil
	})
}

func (r *attendanceRepo) Scan(_ context.Context, limit int) ([]*models.AttendanceRecord, error) {
	var out []*models.AttendanceRecord
	err := r.view(func(t *tables) error {
		for i := len(t.attendance) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, copyOf(t.attendance[i]))
		}
		return nil
	})
	return out, err
}

func (r *attendanceRepo) ListByStudent(_ context.Context, studentID string) ([]*models.AttendanceRecord, error) {
	var out []*models.AttendanceRecord
	err := r.view(func(t *tables) error {
		for i := len(t.attendance) - 1; i >= 0; i-- {
			if t.attendance[i].StudentID == studentID {
				out = append(out, copyOf(t.attendance[i]))
			}
		}
		return nil
	})
	return out, err
}

type examRepo struct{ *store }

func (r *examRepo) Create(_ context.Context, e *models.Exam) error {
	return r.update("Exams.Create", func(t *tables) error {
		t.exams[e.ID] = copyOf(e)
		return nil
	})
}

func (r *examRepo) GetByID(_ context.Context, id string) (*models.Exam, error) {
	var out *models.Exam
	err := r.view(func(t *tables) error {
		e, ok := t.exams[id]
		if !ok {
			return apperrors.ErrExamNotFound
		}
		out = copyOf(e)
		return nil
	})
	return out, err
}

func (r *examRepo) List(_ context.Context, f models.ExamFilter) ([]*models.Exam, error) {
	var out []*models.Exam
	err := r.view(func(t *tables) error {
		for _, e := range t.exams {
			if f.Program != "" && e.Program != f.Program {
				continue
			}
			if f.Branch != "" && e.Branch != f.Branch {
				continue
			}
			if f.Year != 0 && e.Year != f.Year {
				continue
			}
			if f.Semester != 0 && e.Semester != f.Semester {
				continue
			}
			out = append(out, copyOf(e))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, err
}

type hallTicketRepo struct{ *store }

func (r *hallTicketRepo) Upsert(_ context.Context, ticket *models.HallTicket) error {
	return r.update("HallTickets.Upsert", func(t *tables) error {
		t.hallTickets[ticket.ID] = cloneHallTicket(ticket)
		return nil
	})
}

func (r *hallTicketRepo) Get(_ context.Context, studentID string, semester int) (*models.HallTicket, error) {
	var out *models.HallTicket
	err := r.view(func(t *tables) error {
		ticket, ok := t.hallTickets[models.HallTicketID(studentID, semester)]
		if !ok {
			return apperrors.ErrHallTicketNotFound
		}
		out = cloneHallTicket(ticket)
		return nil
	})
	return out, err
}

type materialRepo struct{ *store }

func (r *materialRepo) Create(_ context.Context, m *models.Material) error {
	return r.update("Materials.Create", func(t *tables) error {
		t.materials[m.ID] = copyOf(m)
		return nil
	})
}

func (r *materialRepo) GetByID(_ context.Context, id string) (*models.Material, error) {
	var out *models.Material
	err := r.view(func(t *tables) error {
		m, ok := t.materials[id]
		if !ok {
			return apperrors.ErrMaterialNotFound
		}
		out = copyOf(m)
		return nil
	})
	return out, err
}

func (r *materialRepo) ListByCourse(_ context.Context, courseCode string) ([]*models.Material, error) {
	var out []*models.Material
	err := r.view(func(t *tables) error {
		for _, m := range t.materials {
			if m.CourseCode == courseCode {
				out = append(out, copyOf(m))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *materialRepo) Delete(_ context.Context, id string) error {
	return r.update("Materials.Delete", func(t *tables) error {
		if _, ok := t.materials[id]; !ok {
			return apperrors.ErrMaterialNotFound
		}
		delete(t.materials, id)
		return nil
	})
}
