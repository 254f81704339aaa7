package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/models"
	"github.com/noah-isme/coursepass-api/internal/repository"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CreateWithEnrollment(ctx context.Context, student *models.Student, enrollment *models.Enrollment) error
	UpdatePaymentState(ctx context.Context, student *models.Student) error
	UpdatePaymentLink(ctx context.Context, id, link string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type enrollmentRepository interface {
	Enroll(ctx context.Context, enrollment *models.Enrollment) (int64, error)
	Delete(ctx context.Context, studentID, course, semesterID string) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	ListStudentRows(ctx context.Context, admin string) ([]models.StudentEnrollmentRow, error)
	ExistsForAdmin(ctx context.Context, studentID, admin string) (bool, error)
}

// StudentConfig tunes the student lifecycle.
type StudentConfig struct {
	AccessValidity time.Duration
	Now            func() time.Time
}

// StudentService implements student registration, enrollment and the
// payment gated login flow.
type StudentService struct {
	students    studentRepository
	enrollments enrollmentRepository
	gateway     PaymentGateway
	tokens      tokenIssuer
	notifier    notifier
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	validity    time.Duration
	now         func() time.Time
}

// NewStudentService constructs a StudentService.
func NewStudentService(
	students studentRepository,
	enrollments enrollmentRepository,
	gateway PaymentGateway,
	tokens tokenIssuer,
	notifier notifier,
	audit auditLogger,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg StudentConfig,
) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.AccessValidity <= 0 {
		cfg.AccessValidity = 365 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &StudentService{
		students:    students,
		enrollments: enrollments,
		gateway:     gateway,
		tokens:      tokens,
		notifier:    notifier,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		validity:    cfg.AccessValidity,
		now:         cfg.Now,
	}
}

// Create registers a new student with a first enrollment, or enrolls an
// existing student when the id is already known.
func (s *StudentService) Create(ctx context.Context, principal models.Principal, req dto.CreateStudentRequest) (*dto.CreateStudentResponse, error) {
	if !principal.HasRole(models.RoleAdmin, models.RoleSuperAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	now := s.now().UTC()
	enrollment := &models.Enrollment{
		StudentID:  req.ID,
		Course:     req.Course,
		SemesterID: req.SemesterID,
		Admin:      principal.Subject,
		CreatedAt:  now,
	}
	res := &dto.CreateStudentResponse{
		ID:         req.ID,
		Enrollment: dto.EnrollmentItem{Course: req.Course, SemesterID: req.SemesterID, Admin: principal.Subject},
	}

	existing, err := s.students.FindByID(ctx, req.ID)
	switch {
	case err == nil:
		replaced, err := s.enroll(ctx, enrollment)
		if err != nil {
			return nil, err
		}
		res.Email = existing.Email
		res.ReplacedSemesters = replaced
		recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionEnroll, "students", req.ID,
			map[string]interface{}{"course": req.Course, "semesterId": req.SemesterID, "replaced": replaced})
		return res, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	taken, err := s.students.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	password := req.Password
	if password == "" {
		if password, err = generatePassword(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
		}
		res.GeneratedPassword = password
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, hashFailure(err)
	}

	link, err := s.checkoutLink(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		ID:           req.ID,
		PasswordHash: hash,
		Email:        req.Email,
		PaymentLink:  link,
		CreatedAt:    now,
	}
	if err := s.students.CreateWithEnrollment(ctx, student, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if s.notifier != nil {
		s.notifier.PaymentLinkIssued(ctx, student)
	}
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionStudentCreate, "students", student.ID,
		map[string]interface{}{"email": student.Email, "course": req.Course, "semesterId": req.SemesterID})

	res.Created = true
	res.Email = student.Email
	res.PaymentLink = link
	return res, nil
}

func (s *StudentService) enroll(ctx context.Context, enrollment *models.Enrollment) (int64, error) {
	replaced, err := s.enrollments.Enroll(ctx, enrollment)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this course and semester")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return replaced, nil
}

// RemoveEnrollment deletes a single enrollment.
func (s *StudentService) RemoveEnrollment(ctx context.Context, principal models.Principal, req dto.RemoveEnrollmentRequest) error {
	if !principal.HasRole(models.RoleAdmin, models.RoleSuperAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.enrollments.Delete(ctx, req.ID, req.Course, req.SemesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionUnenroll, "students", req.ID,
		map[string]interface{}{"course": req.Course, "semesterId": req.SemesterID})
	return nil
}

// Validate authenticates a student and enforces the payment gate.
func (s *StudentService) Validate(ctx context.Context, req dto.ValidateStudentRequest) (*dto.StudentLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	student, err := s.students.FindByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLogin(string(models.RoleStudent), OutcomeFailure)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid student id or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !passwordMatches(student.PasswordHash, req.Password) {
		s.metrics.RecordLogin(string(models.RoleStudent), OutcomeFailure)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid student id or password")
	}

	switch student.AccessState(s.now(), s.validity) {
	case models.AccessPendingPayment:
		s.metrics.RecordLogin(string(models.RoleStudent), OutcomeDenied)
		if student.PaymentLink == "" {
			link, err := s.checkoutLink(ctx, student.ID)
			if err != nil {
				return nil, err
			}
			if err := s.students.UpdatePaymentLink(ctx, student.ID, link); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payment link")
			}
			student.PaymentLink = link
		}
		return nil, appErrors.WithDetail(appErrors.ErrPaymentRequired, "paymentLink", student.PaymentLink)

	case models.AccessExpired:
		s.metrics.RecordLogin(string(models.RoleStudent), OutcomeDenied)
		// Flags already reset by an earlier login: the stored link is still current.
		if !student.Paid && !student.Active && student.PaymentLink != "" {
			return nil, appErrors.WithDetail(appErrors.ErrAccessExpired, "paymentLink", student.PaymentLink)
		}
		transitioned := student.Paid || student.Active
		student.ExpireAccess()
		link, linkErr := s.checkoutLink(ctx, student.ID)
		if linkErr == nil {
			student.PaymentLink = link
		}
		if err := s.students.UpdatePaymentState(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire student access")
		}
		if linkErr != nil {
			return nil, linkErr
		}
		if transitioned {
			if s.notifier != nil {
				s.notifier.PaymentLinkIssued(ctx, student)
			}
			s.logger.Info("student access expired", zap.String("student_id", student.ID))
		}
		return nil, appErrors.WithDetail(appErrors.ErrAccessExpired, "paymentLink", student.PaymentLink)

	case models.AccessInactive:
		s.metrics.RecordLogin(string(models.RoleStudent), OutcomeDenied)
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	token, expiresAt, err := s.tokens.Issue(student.ID, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}
	enrollments, err := s.enrollments.List(ctx, models.EnrollmentFilter{StudentID: student.ID, Admin: strings.TrimSpace(req.Admin)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	items := make([]dto.EnrollmentItem, 0, len(enrollments))
	for _, e := range enrollments {
		items = append(items, dto.EnrollmentItem{Course: e.Course, SemesterID: e.SemesterID, Admin: e.Admin})
	}
	s.metrics.RecordLogin(string(models.RoleStudent), OutcomeSuccess)
	return &dto.StudentLoginResponse{Token: token, ExpiresAt: expiresAt, StudentID: student.ID, Enrollments: items}, nil
}

// Activate sets the active flag without touching payment state.
func (s *StudentService) Activate(ctx context.Context, principal models.Principal, req dto.StudentIDRequest) (*dto.StudentStatusResponse, error) {
	student, err := s.loadForTransition(ctx, principal, req)
	if err != nil {
		return nil, err
	}
	if err := s.students.SetActive(ctx, student.ID, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate student")
	}
	student.Active = true
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionStudentActivate, "students", student.ID, nil)
	return statusOf(student), nil
}

// Approve marks the student paid and active. A missing or lapsed payment
// date restarts the access window from now.
func (s *StudentService) Approve(ctx context.Context, principal models.Principal, req dto.StudentIDRequest) (*dto.StudentStatusResponse, error) {
	student, err := s.loadForTransition(ctx, principal, req)
	if err != nil {
		return nil, err
	}
	student.Paid = true
	student.Active = true
	now := s.now().UTC()
	if student.PaymentDate == nil || student.PaymentDate.Add(s.validity).Before(now) {
		student.PaymentDate = &now
	}
	if err := s.students.UpdatePaymentState(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve student")
	}
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionStudentApprove, "students", student.ID, nil)
	return statusOf(student), nil
}

func (s *StudentService) loadForTransition(ctx context.Context, principal models.Principal, req dto.StudentIDRequest) (*models.Student, error) {
	if !principal.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "superadmin role required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.students.FindByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List groups students with their enrollments as course -> semester. ADMIN
// callers only see their own enrollments; SUPERADMIN may pick any admin or
// all of them with an empty filter.
func (s *StudentService) List(ctx context.Context, principal models.Principal, admin string) ([]dto.StudentSummary, error) {
	if !principal.HasRole(models.RoleAdmin, models.RoleSuperAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	scope := principal.Subject
	if principal.IsSuperAdmin() {
		scope = strings.TrimSpace(admin)
	}

	rows, err := s.enrollments.ListStudentRows(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	summaries := make([]dto.StudentSummary, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.StudentID]
		if !ok {
			i = len(summaries)
			index[row.StudentID] = i
			summaries = append(summaries, dto.StudentSummary{ID: row.StudentID, Email: row.Email, Enrollments: map[string]string{}})
		}
		summaries[i].Enrollments[row.Course] = row.SemesterID
	}
	return summaries, nil
}

// ResetPassword changes a student password. ADMIN callers must have enrolled
// the student at least once; SUPERADMIN may reset anyone.
func (s *StudentService) ResetPassword(ctx context.Context, principal models.Principal, studentID, newPassword string) error {
	if !principal.HasRole(models.RoleAdmin, models.RoleSuperAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !principal.IsSuperAdmin() {
		owns, err := s.enrollments.ExistsForAdmin(ctx, studentID, principal.Subject)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student ownership")
		}
		if !owns {
			return appErrors.Clone(appErrors.ErrForbidden, "student is not managed by this admin")
		}
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return hashFailure(err)
	}
	if err := s.students.UpdatePassword(ctx, studentID, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student password")
	}
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionPasswordChange, "students", studentID, nil)
	return nil
}

func (s *StudentService) checkoutLink(ctx context.Context, studentID string) (string, error) {
	link, err := s.gateway.CreateCheckoutSession(ctx, studentID)
	if err != nil {
		s.metrics.RecordCheckoutSession(OutcomeFailure)
		s.logger.Error("checkout session failed", zap.String("student_id", studentID), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrPaymentProvider.Code, appErrors.ErrPaymentProvider.Status, "failed to create payment link")
	}
	s.metrics.RecordCheckoutSession(OutcomeSuccess)
	return link, nil
}

func statusOf(student *models.Student) *dto.StudentStatusResponse {
	return &dto.StudentStatusResponse{
		ID:          student.ID,
		Paid:        student.Paid,
		Active:      student.Active,
		PaymentDate: student.PaymentDate,
	}
}
