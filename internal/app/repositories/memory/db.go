// Package memory is an in-process implementation of the repositories, used for
// local development (database.driver: memory) and tests.
//
// A transaction holds the write lock for its whole duration and works on a deep
// copy of the tables, which replaces the live tables only when the function
// succeeds. Transactions are therefore serializable and a failed transaction
// leaves no partial writes. Code running inside a transaction must only use the
// repositories it was handed.
package memory

import (
	"context"
	"sync"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/repositories"
)

type tables struct {
	counters      map[string]int64
	users         map[string]*models.User
	students      map[string]*models.StudentProfile
	staff         map[models.RoleType]map[string]*models.StaffProfile
	fees          map[string]*models.FeeLedger
	hostels       map[string]*models.Hostel
	classes       map[string]*models.Class
	courses       map[string]*models.Course
	attendance    []*models.AttendanceRecord
	exams         map[string]*models.Exam
	hallTickets   map[string]*models.HallTicket
	notifications map[string]*models.Notification
	chats         map[string]*models.ChatRoom
	logins        []*models.LoginActivity
	materials     map[string]*models.Material
	sagas         map[string]*models.ProvisioningSaga
	credentials   map[string]*models.Credential
	tokens        map[string]*models.AuthToken
}

func newTables() *tables {
	return &tables{
		counters: make(map[string]int64),
		users:    make(map[string]*models.User),
		students: make(map[string]*models.StudentProfile),
		staff: map[models.RoleType]map[string]*models.StaffProfile{
			models.RoleTeacher: make(map[string]*models.StaffProfile),
			models.RoleAdmin:   make(map[string]*models.StaffProfile),
		},
		fees:          make(map[string]*models.FeeLedger),
		hostels:       make(map[string]*models.Hostel),
		classes:       make(map[string]*models.Class),
		courses:       make(map[string]*models.Course),
		exams:         make(map[string]*models.Exam),
		hallTickets:   make(map[string]*models.HallTicket),
		notifications: make(map[string]*models.Notification),
		chats:         make(map[string]*models.ChatRoom),
		materials:     make(map[string]*models.Material),
		sagas:         make(map[string]*models.ProvisioningSaga),
		credentials:   make(map[string]*models.Credential),
		tokens:        make(map[string]*models.AuthToken),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		counters:      make(map[string]int64, len(t.counters)),
		users:         cloneMap(t.users, copyOf[models.User]),
		students:      cloneMap(t.students, cloneStudent),
		staff:         make(map[models.RoleType]map[string]*models.StaffProfile, len(t.staff)),
		fees:          cloneMap(t.fees, cloneLedger),
		hostels:       cloneMap(t.hostels, (*models.Hostel).Clone),
		classes:       cloneMap(t.classes, cloneClass),
		courses:       cloneMap(t.courses, copyOf[models.Course]),
		attendance:    append([]*models.AttendanceRecord(nil), t.attendance...),
		exams:         cloneMap(t.exams, copyOf[models.Exam]),
		hallTickets:   cloneMap(t.hallTickets, cloneHallTicket),
		notifications: cloneMap(t.notifications, copyOf[models.Notification]),
		chats:         cloneMap(t.chats, cloneChat),
		logins:        append([]*models.LoginActivity(nil), t.logins...),
		materials:     cloneMap(t.materials, copyOf[models.Material]),
		sagas:         cloneMap(t.sagas, copyOf[models.ProvisioningSaga]),
		credentials:   cloneMap(t.credentials, cloneCredential),
		tokens:        cloneMap(t.tokens, copyOf[models.AuthToken]),
	}
	for k, v := range t.counters {
		c.counters[k] = v
	}
	for role, profiles := range t.staff {
		c.staff[role] = cloneMap(profiles, copyOf[models.StaffProfile])
	}
	return c
}

// DB is the in-memory database
type DB struct {
	mu     sync.RWMutex
	tables *tables

	faultMu sync.Mutex
	faults  map[string]error
}

// New returns an empty database
func New() *DB {
	return &DB{tables: newTables(), faults: make(map[string]error)}
}

// Repositories returns repositories that operate outside any transaction
func (d *DB) Repositories() *repositories.Repositories {
	return newRepositories(&store{db: d})
}

// WithTransaction implements repositories.Transactor
func (d *DB) WithTransaction(ctx context.Context, fn repositories.TxFn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := d.tables.clone()
	if err := fn(ctx, newRepositories(&store{db: d, tx: working})); err != nil {
		return err
	}
	d.tables = working
	return nil
}

// FailOnce makes the next call of the named repository operation return err.
// Operation names are "<Repository>.<Method>", e.g. "Users.CreateStudent".
func (d *DB) FailOnce(op string, err error) {
	d.faultMu.Lock()
	defer d.faultMu.Unlock()
	d.faults[op] = err
}

func (d *DB) takeFault(op string) error {
	d.faultMu.Lock()
	defer d.faultMu.Unlock()
	err, ok := d.faults[op]
	if ok {
		delete(d.faults, op)
	}
	return err
}

// store routes table access either to a transaction's working copy or, under
// the database lock, to the live tables
type store struct {
	db *DB
	tx *tables
}

func (s *store) view(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.tables)
}

func (s *store) update(op string, fn func(t *tables) error) error {
	if err := s.db.takeFault(op); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.tables)
}

func newRepositories(s *store) *repositories.Repositories {
	return &repositories.Repositories{
		Counters:      &counterRepo{s},
		Users:         &userRepo{s},
		Fees:          &feeRepo{s},
		Hostels:       &hostelRepo{s},
		Classes:       &classRepo{s},
		Courses:       &courseRepo{s},
		Attendance:    &attendanceRepo{s},
		Exams:         &examRepo{s},
		HallTickets:   &hallTicketRepo{s},
		Notifications: &notificationRepo{s},
		Chats:         &chatRepo{s},
		LoginActivity: &loginActivityRepo{s},
		Materials:     &materialRepo{s},
		Sagas:         &sagaRepo{s},
		Credentials:   &credentialRepo{s},
		Tokens:        &tokenRepo{s},
	}
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

func cloneMap[K comparable, V any](m map[K]*V, clone func(*V) *V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func cloneStudent(s *models.StudentProfile) *models.StudentProfile {
	c := *s
	if s.Hostel != nil {
		h := *s.Hostel
		c.Hostel = &h
	}
	return &c
}

func cloneLedger(l *models.FeeLedger) *models.FeeLedger {
	c := *l
	c.PaymentHistory = append([]models.Payment(nil), l.PaymentHistory...)
	return &c
}

func cloneClass(cl *models.Class) *models.Class {
	c := *cl
	c.StudentUIDs = append([]string(nil), cl.StudentUIDs...)
	return &c
}

func cloneHallTicket(t *models.HallTicket) *models.HallTicket {
	c := *t
	c.Exams = append([]models.Exam(nil), t.Exams...)
	return &c
}

func cloneChat(r *models.ChatRoom) *models.ChatRoom {
	c := *r
	c.MemberUIDs = append([]string(nil), r.MemberUIDs...)
	return &c
}

func cloneCredential(cr *models.Credential) *models.Credential {
	c := *cr
	c.Claims = make(map[string]interface{}, len(cr.Claims))
	for k, v := range cr.Claims {
		c.Claims[k] = v
	}
	return &c
}
