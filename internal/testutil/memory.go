// Package testutil provides in-memory stand-ins for the persistence and
// payment layers, shared by service and handler tests.
package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/coursepass-api/internal/models"
	"github.com/noah-isme/coursepass-api/internal/repository"
	"github.com/noah-isme/coursepass-api/pkg/payment"
)

type gradeKey struct {
	student, course, assignment, semester string
}

// Store is a concurrency-safe in-memory database.
type Store struct {
	mu          sync.Mutex
	admins      map[string]models.Admin
	students    map[string]models.Student
	enrollments []models.Enrollment
	grades      map[gradeKey]models.Grade
	audit       []models.AuditLog
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		admins:   map[string]models.Admin{},
		students: map[string]models.Student{},
		grades:   map[gradeKey]models.Grade{},
	}
}

func (s *Store) Admins() *AdminRepo           { return &AdminRepo{s} }
func (s *Store) Students() *StudentRepo       { return &StudentRepo{s} }
func (s *Store) Enrollments() *EnrollmentRepo { return &EnrollmentRepo{s} }
func (s *Store) Grades() *GradeRepo           { return &GradeRepo{s} }
func (s *Store) Audit() *AuditRepo            { return &AuditRepo{s} }

// Student returns a copy of the stored student.
func (s *Store) Student(id string) (models.Student, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	return st, ok
}

// PutStudent inserts or replaces a student.
func (s *Store) PutStudent(st models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// PutAdmin inserts or replaces an admin.
func (s *Store) PutAdmin(a models.Admin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.Name] = a
}

// Admin returns a copy of the stored admin.
func (s *Store) Admin(name string) (models.Admin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[name]
	return a, ok
}

// EnrollmentRows returns a snapshot of every enrollment.
func (s *Store) EnrollmentRows() []models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Enrollment(nil), s.enrollments...)
}

// AuditActions lists recorded audit actions in order.
func (s *Store) AuditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audit))
	for _, l := range s.audit {
		out = append(out, l.Action)
	}
	return out
}

// AdminRepo is the in-memory admin repository.
type AdminRepo struct{ s *Store }

func (r *AdminRepo) FindByName(_ context.Context, name string) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (r *AdminRepo) List(_ context.Context) ([]models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Admin, 0, len(r.s.admins))
	for _, a := range r.s.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *AdminRepo) Exists(_ context.Context, name string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.admins[name]
	return ok, nil
}

func (r *AdminRepo) Create(_ context.Context, admin *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[admin.Name]; ok {
		return repository.ErrDuplicate
	}
	r.s.admins[admin.Name] = *admin
	return nil
}

func (r *AdminRepo) CreateIfAbsent(_ context.Context, admin *models.Admin) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[admin.Name]; ok {
		return false, nil
	}
	r.s.admins[admin.Name] = *admin
	return true, nil
}

func (r *AdminRepo) UpdatePassword(_ context.Context, name, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[name]
	if !ok {
		return sql.ErrNoRows
	}
	a.PasswordHash = passwordHash
	r.s.admins[name] = a
	return nil
}

func (r *AdminRepo) Delete(_ context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[name]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.admins, name)
	return nil
}

// StudentRepo is the in-memory student repository.
type StudentRepo struct{ s *Store }

func (r *StudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (r *StudentRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.students {
		if strings.EqualFold(st.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *StudentRepo) CreateWithEnrollment(_ context.Context, student *models.Student, enrollment *models.Enrollment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[student.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.students[student.ID] = *student
	r.s.enrollments = append(r.s.enrollments, *enrollment)
	return nil
}

func (r *StudentRepo) update(id string, fn func(*models.Student)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(&st)
	r.s.students[id] = st
	return nil
}

func (r *StudentRepo) UpdatePaymentState(_ context.Context, student *models.Student) error {
	return r.update(student.ID, func(st *models.Student) {
		st.Paid = student.Paid
		st.Active = student.Active
		st.PaymentLink = student.PaymentLink
		st.PaymentDate = student.PaymentDate
	})
}

func (r *StudentRepo) UpdatePaymentLink(_ context.Context, id, link string) error {
	return r.update(id, func(st *models.Student) { st.PaymentLink = link })
}

func (r *StudentRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(st *models.Student) { st.PasswordHash = passwordHash })
}

func (r *StudentRepo) SetActive(_ context.Context, id string, active bool) error {
	return r.update(id, func(st *models.Student) { st.Active = active })
}

// EnrollmentRepo is the in-memory enrollment repository.
type EnrollmentRepo struct{ s *Store }

func (r *EnrollmentRepo) Enroll(_ context.Context, e *models.Enrollment) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.enrollments[:0:0]
	var replaced int64
	for _, row := range r.s.enrollments {
		if row.StudentID == e.StudentID && row.Course == e.Course {
			if row.SemesterID == e.SemesterID {
				return 0, repository.ErrDuplicate
			}
			replaced++
			continue
		}
		kept = append(kept, row)
	}
	r.s.enrollments = append(kept, *e)
	return replaced, nil
}

func (r *EnrollmentRepo) Delete(_ context.Context, studentID, course, semesterID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, row := range r.s.enrollments {
		if row.StudentID == studentID && row.Course == course && row.SemesterID == semesterID {
			r.s.enrollments = append(r.s.enrollments[:i], r.s.enrollments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *EnrollmentRepo) List(_ context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Enrollment, 0)
	for _, row := range r.s.enrollments {
		if filter.StudentID != "" && row.StudentID != filter.StudentID {
			continue
		}
		if filter.Admin != "" && row.Admin != filter.Admin {
			continue
		}
		if filter.Course != "" && row.Course != filter.Course {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *EnrollmentRepo) ListStudentRows(_ context.Context, admin string) ([]models.StudentEnrollmentRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.StudentEnrollmentRow, 0)
	for _, row := range r.s.enrollments {
		if admin != "" && row.Admin != admin {
			continue
		}
		out = append(out, models.StudentEnrollmentRow{
			StudentID:  row.StudentID,
			Email:      r.s.students[row.StudentID].Email,
			Course:     row.Course,
			SemesterID: row.SemesterID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].Course < out[j].Course
	})
	return out, nil
}

func (r *EnrollmentRepo) ExistsForAdmin(_ context.Context, studentID, admin string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.enrollments {
		if row.StudentID == studentID && row.Admin == admin {
			return true, nil
		}
	}
	return false, nil
}

// GradeRepo is the in-memory grade repository.
type GradeRepo struct{ s *Store }

func (r *GradeRepo) Upsert(_ context.Context, g *models.Grade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.grades[gradeKey{g.StudentID, g.Course, g.Assignment, g.SemesterID}] = *g
	return nil
}

func (r *GradeRepo) List(_ context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Grade, 0)
	for _, g := range r.s.grades {
		if (filter.StudentID != "" && g.StudentID != filter.StudentID) ||
			(filter.Course != "" && g.Course != filter.Course) ||
			(filter.Assignment != "" && g.Assignment != filter.Assignment) ||
			(filter.Admin != "" && g.Admin != filter.Admin) ||
			(filter.SemesterID != "" && g.SemesterID != filter.SemesterID) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		if a.Course != b.Course {
			return a.Course < b.Course
		}
		return a.Assignment < b.Assignment
	})
	return out, nil
}

// AuditRepo is the in-memory audit repository.
type AuditRepo struct{ s *Store }

func (r *AuditRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	r.s.audit = append(r.s.audit, *log)
	return nil
}

// Gateway is a fake payment gateway. Webhook payloads are JSON encoded
// payment.Event values and the signature must equal Secret.
type Gateway struct {
	mu       sync.Mutex
	Secret   string
	Fail     error
	sessions int
}

// NewGateway returns a gateway accepting signature "valid".
func NewGateway() *Gateway {
	return &Gateway{Secret: "valid"}
}

func (g *Gateway) CreateCheckoutSession(_ context.Context, studentID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Fail != nil {
		return "", g.Fail
	}
	g.sessions++
	return fmt.Sprintf("https://checkout.test/session/%d?studentId=%s", g.sessions, studentID), nil
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != g.Secret {
		return nil, fmt.Errorf("fake gateway: %w", payment.ErrInvalidSignature)
	}
	return DecodeEvent(payload)
}

// Sessions reports how many checkout sessions were created.
func (g *Gateway) Sessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions
}

// Notifier records notifications instead of sending them.
type Notifier struct {
	mu        sync.Mutex
	Links     []string
	Confirmed []string
}

func (n *Notifier) PaymentLinkIssued(_ context.Context, student *models.Student) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Links = append(n.Links, student.ID)
}

func (n *Notifier) PaymentConfirmed(_ context.Context, student *models.Student) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Confirmed = append(n.Confirmed, student.ID)
}

var errEventPayload = errors.New("fake gateway: malformed event")
