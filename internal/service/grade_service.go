package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/models"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/export"
)

const gradeCachePrefix = "grades:"

type gradeRepository interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// GradeService records assignment results and serves grade listings.
type GradeService struct {
	grades    gradeRepository
	students  studentLookup
	cache     *CacheService
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeService constructs a GradeService. cache may be nil.
func NewGradeService(grades gradeRepository, students studentLookup, cache *CacheService, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{
		grades:    grades,
		students:  students,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit upserts the grade of a student's own submission. The student must
// exist and have paid, active access.
func (s *GradeService) Submit(ctx context.Context, principal models.Principal, req dto.SubmitGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordGradeSubmission(OutcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !principal.HasRole(models.RoleStudent) || principal.Subject != req.StudentID {
		s.metrics.RecordGradeSubmission(OutcomeDenied)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only submit their own grades")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordGradeSubmission(OutcomeFailure)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Paid || !student.Active {
		s.metrics.RecordGradeSubmission(OutcomeDenied)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student access is not active")
	}

	timestamp := s.now().UTC()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		timestamp = req.Timestamp.UTC()
	}
	grade := &models.Grade{
		StudentID:      req.StudentID,
		Course:         req.Course,
		Assignment:     req.Assignment,
		SemesterID:     req.SemesterID,
		Grade:          req.Grade,
		ConsoleOutput:  req.ConsoleOutput,
		SubmittedFiles: models.SubmittedFiles(req.SubmittedFiles),
		Admin:          req.Admin,
		Timestamp:      timestamp,
	}
	if grade.SubmittedFiles == nil {
		grade.SubmittedFiles = models.SubmittedFiles{}
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		s.metrics.RecordGradeSubmission(OutcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}

	s.cache.Invalidate(ctx, gradeCachePrefix+"*")
	s.metrics.RecordGradeSubmission(OutcomeSuccess)
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionGradeSubmit, "grades", req.StudentID,
		map[string]interface{}{"course": req.Course, "assignment": req.Assignment, "semesterId": req.SemesterID, "grade": req.Grade})
	return grade, nil
}

// List returns grades matching the query, served from cache when possible.
func (s *GradeService) List(ctx context.Context, query dto.GradeListQuery) ([]models.Grade, error) {
	filter := models.GradeFilter{
		StudentID:  strings.TrimSpace(query.StudentID),
		Course:     strings.TrimSpace(query.Course),
		Assignment: strings.TrimSpace(query.Assignment),
		Admin:      strings.TrimSpace(query.Admin),
		SemesterID: strings.TrimSpace(query.SemesterID),
	}
	key := gradeCacheKey(filter)

	var cached []models.Grade
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	s.cache.Set(ctx, key, grades, 0)
	return grades, nil
}

// Export renders the grades of an admin's students. ADMIN callers export
// their own grades; SUPERADMIN may choose the admin or export everything.
func (s *GradeService) Export(ctx context.Context, principal models.Principal, query dto.GradeExportQuery) (*export.Document, error) {
	if !principal.HasRole(models.RoleAdmin, models.RoleSuperAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	filter := models.GradeFilter{
		Admin:      principal.Subject,
		Course:     strings.TrimSpace(query.Course),
		SemesterID: strings.TrimSpace(query.SemesterID),
	}
	if principal.IsSuperAdmin() {
		filter.Admin = strings.TrimSpace(query.Admin)
	}

	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	title := "Grades"
	if filter.Admin != "" {
		title = fmt.Sprintf("Grades - %s", filter.Admin)
	}
	data := export.Dataset{
		Title:   title,
		Headers: []string{"Student", "Course", "Semester", "Assignment", "Grade", "Admin", "Submitted At"},
		Rows:    make([]map[string]string, 0, len(grades)),
	}
	for _, g := range grades {
		data.Rows = append(data.Rows, map[string]string{
			"Student":      g.StudentID,
			"Course":       g.Course,
			"Semester":     g.SemesterID,
			"Assignment":   g.Assignment,
			"Grade":        g.Grade,
			"Admin":        g.Admin,
			"Submitted At": g.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	doc, err := export.Render(format, "grades-"+s.now().UTC().Format("20060102"), data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return doc, nil
}

func gradeCacheKey(f models.GradeFilter) string {
	return fmt.Sprintf("%sstudent=%s:course=%s:assignment=%s:admin=%s:semester=%s",
		gradeCachePrefix, f.StudentID, f.Course, f.Assignment, f.Admin, f.SemesterID)
}
