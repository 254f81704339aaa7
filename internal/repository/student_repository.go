package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursepass-api/internal/models"
)

const studentColumns = `id, password_hash, email, paid, active, payment_link, payment_date, created_at`

// StudentRepository provides database access for student accounts.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns sql.ErrNoRows when the student does not exist.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// ExistsByEmail checks email uniqueness case-insensitively.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM students WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check student email: %w", err)
	}
	return exists, nil
}

// CreateWithEnrollment inserts the student and its first enrollment atomically.
func (r *StudentRepository) CreateWithEnrollment(ctx context.Context, student *models.Student, enrollment *models.Enrollment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertStudent = `INSERT INTO students (id, password_hash, email, paid, active, payment_link, payment_date, created_at)
VALUES (:id, :password_hash, :email, :paid, :active, :payment_link, :payment_date, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertStudent, student); err != nil {
		if mapUniqueViolation(err) == ErrDuplicate {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("insert student: %w", err)
	}

	if enrollment != nil {
		const insertEnrollment = `INSERT INTO enrollments (student_id, course, semester_id, admin, created_at)
VALUES (:student_id, :course, :semester_id, :admin, :created_at)`
		if _, err = tx.NamedExecContext(ctx, insertEnrollment, enrollment); err != nil {
			return fmt.Errorf("insert first enrollment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student: %w", err)
	}
	return nil
}

// UpdatePaymentState persists paid, active, payment link and payment date.
func (r *StudentRepository) UpdatePaymentState(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET paid = :paid, active = :active, payment_link = :payment_link, payment_date = :payment_date WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student payment state: %w", err)
	}
	return requireAffected(res, "update student payment state")
}

// UpdatePaymentLink stores a freshly generated checkout link.
func (r *StudentRepository) UpdatePaymentLink(ctx context.Context, id, link string) error {
	const query = `UPDATE students SET payment_link = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, link)
	if err != nil {
		return fmt.Errorf("update student payment link: %w", err)
	}
	return requireAffected(res, "update student payment link")
}

// UpdatePassword stores a new hash for the student.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE students SET password_hash = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update student password: %w", err)
	}
	return requireAffected(res, "update student password")
}

// SetActive toggles the active flag only.
func (r *StudentRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE students SET active = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("update student active: %w", err)
	}
	return requireAffected(res, "update student active")
}
