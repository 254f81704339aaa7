package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursepass-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll inserts the enrollment, replacing any enrollment of the same student
// in the same course under another semester. ErrDuplicate is returned when
// the exact (student, course, semester) row already exists. The number of
// replaced rows is returned.
func (r *EnrollmentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) (replaced int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing []string
	const lockQuery = `SELECT semester_id FROM enrollments WHERE student_id = $1 AND course = $2 FOR UPDATE`
	if err = tx.SelectContext(ctx, &existing, lockQuery, enrollment.StudentID, enrollment.Course); err != nil {
		return 0, fmt.Errorf("lock enrollments: %w", err)
	}
	for _, semester := range existing {
		if semester == enrollment.SemesterID {
			err = ErrDuplicate
			return 0, err
		}
	}

	if len(existing) > 0 {
		const deleteQuery = `DELETE FROM enrollments WHERE student_id = $1 AND course = $2 AND semester_id <> $3`
		var res sql.Result
		if res, err = tx.ExecContext(ctx, deleteQuery, enrollment.StudentID, enrollment.Course, enrollment.SemesterID); err != nil {
			return 0, fmt.Errorf("delete previous enrollments: %w", err)
		}
		if replaced, err = res.RowsAffected(); err != nil {
			return 0, fmt.Errorf("delete previous enrollments rows affected: %w", err)
		}
	}

	const insertQuery = `INSERT INTO enrollments (student_id, course, semester_id, admin, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertQuery, enrollment.StudentID, enrollment.Course, enrollment.SemesterID, enrollment.Admin, enrollment.CreatedAt); err != nil {
		if mapUniqueViolation(err) == ErrDuplicate {
			err = ErrDuplicate
			return 0, err
		}
		return 0, fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit enrollment: %w", err)
	}
	return replaced, nil
}

// Delete removes a single enrollment. sql.ErrNoRows is returned when it does not exist.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, course, semesterID string) error {
	const query = `DELETE FROM enrollments WHERE student_id = $1 AND course = $2 AND semester_id = $3`
	res, err := r.db.ExecContext(ctx, query, studentID, course, semesterID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return requireAffected(res, "delete enrollment")
}

// List returns enrollments matching filter ordered by course.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Admin != "" {
		args = append(args, filter.Admin)
		conditions = append(conditions, fmt.Sprintf("admin = $%d", len(args)))
	}
	if filter.Course != "" {
		args = append(args, filter.Course)
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)))
	}

	query := `SELECT student_id, course, semester_id, admin, created_at FROM enrollments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY student_id ASC, course ASC"

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListStudentRows returns one row per enrollment joined with the student's
// email, restricted to enrollments created by admin when admin is non-empty.
func (r *EnrollmentRepository) ListStudentRows(ctx context.Context, admin string) ([]models.StudentEnrollmentRow, error) {
	query := `SELECT s.id AS student_id, s.email, e.course, e.semester_id
FROM enrollments e
JOIN students s ON s.id = e.student_id`
	var args []interface{}
	if admin != "" {
		query += "\nWHERE e.admin = $1"
		args = append(args, admin)
	}
	query += "\nORDER BY s.id ASC, e.course ASC"

	var rows []models.StudentEnrollmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return rows, nil
}

// ExistsForAdmin reports whether admin created at least one enrollment for the student.
func (r *EnrollmentRepository) ExistsForAdmin(ctx context.Context, studentID, admin string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND admin = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, admin); err != nil {
		return false, fmt.Errorf("check admin enrollment: %w", err)
	}
	return exists, nil
}
