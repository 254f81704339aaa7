package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursepass-api/internal/models"
)

// GradeRepository persists assignment grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert writes the grade, overwriting any previous submission for the same
// (student, course, assignment, semester).
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	const query = `INSERT INTO grades (student_id, course, assignment, semester_id, grade, console_output, submitted_files, admin, "timestamp")
VALUES (:student_id, :course, :assignment, :semester_id, :grade, :console_output, :submitted_files, :admin, :timestamp)
ON CONFLICT (student_id, course, assignment, semester_id) DO UPDATE SET
	grade = EXCLUDED.grade,
	console_output = EXCLUDED.console_output,
	submitted_files = EXCLUDED.submitted_files,
	admin = EXCLUDED.admin,
	"timestamp" = EXCLUDED."timestamp"`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// List returns grades matching every non-empty filter field.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("student_id", filter.StudentID)
	add("course", filter.Course)
	add("assignment", filter.Assignment)
	add("admin", filter.Admin)
	add("semester_id", filter.SemesterID)

	query := `SELECT student_id, course, assignment, semester_id, grade, console_output, submitted_files, admin, "timestamp" FROM grades`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY student_id ASC, course ASC, assignment ASC`

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}
